package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the authority and the CLI look for jotter.yml.
const DefaultPath = "jotter.yml"

const (
	defaultRedisURL   = "redis://localhost:6379"
	defaultListen     = ":8080"
	defaultEditWindow = 150 * time.Millisecond
	defaultLogLevel   = "info"
)

// JotterConfig represents the top-level jotter.yml configuration
type JotterConfig struct {
	Version    string         `yaml:"version"`
	Town       string         `yaml:"town"`                  // Namespace of every Redis key and channel
	RedisURL   string         `yaml:"redis_url,omitempty"`   // Default: redis://localhost:6379
	Map        string         `yaml:"map"`                   // Town map with the note-taking areas (YAML or Tiled JSON)
	Listen     string         `yaml:"listen,omitempty"`      // HTTP address of the authority (health, metrics, gateway)
	EditWindow time.Duration  `yaml:"edit_window,omitempty"` // Coalescing window for local edits, e.g. "150ms"
	LogLevel   string         `yaml:"log_level,omitempty"`   // debug, info, warn or error
	Gateway    *GatewayConfig `yaml:"gateway,omitempty"`
}

// GatewayConfig controls the WebSocket gateway for browser participants
type GatewayConfig struct {
	Enabled        *bool    `yaml:"enabled,omitempty"`         // Default: true
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"` // Empty allows every origin
}

// GatewayEnabled reports whether the WebSocket gateway should be mounted.
func (c *JotterConfig) GatewayEnabled() bool {
	return c.Gateway == nil || c.Gateway.Enabled == nil || *c.Gateway.Enabled
}

// Validate performs strict validation on the configuration and fills in
// defaults for omitted optional fields
func (c *JotterConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: town, used verbatim inside Redis key names
	if c.Town == "" {
		return fmt.Errorf("town is required")
	}
	if strings.ContainsAny(c.Town, ": \t\n{}") {
		return fmt.Errorf("invalid town name '%s': must not contain ':', '{', '}' or whitespace", c.Town)
	}

	// Required: map
	if c.Map == "" {
		return fmt.Errorf("map is required")
	}

	if c.RedisURL == "" {
		c.RedisURL = defaultRedisURL
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}

	if c.EditWindow == 0 {
		c.EditWindow = defaultEditWindow
	}
	if c.EditWindow < 0 {
		return fmt.Errorf("edit_window must be positive, got %s", c.EditWindow)
	}

	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s (must be 'debug', 'info', 'warn', or 'error')", c.LogLevel)
	}

	return nil
}

// Load reads and validates jotter.yml from the specified path
func Load(path string) (*JotterConfig, error) {
	config, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadFromEnv reads jotter.yml from path, applies JOTTER_* environment
// overrides, then validates. A missing file is not an error when the
// environment supplies the required settings.
func LoadFromEnv(path string) (*JotterConfig, error) {
	config, err := read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		config = &JotterConfig{Version: "1.0"}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides fields from environment variables. REDIS_URL is honoured
// when JOTTER_REDIS_URL is unset.
func (c *JotterConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("JOTTER_TOWN"); ok {
		c.Town = v
	}
	if v, ok := lookup("JOTTER_REDIS_URL"); ok {
		c.RedisURL = v
	} else if v, ok := lookup("REDIS_URL"); ok {
		c.RedisURL = v
	}
	if v, ok := lookup("JOTTER_MAP"); ok {
		c.Map = v
	}
	if v, ok := lookup("JOTTER_LISTEN"); ok {
		c.Listen = v
	}
	if v, ok := lookup("JOTTER_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("JOTTER_EDIT_WINDOW"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JOTTER_EDIT_WINDOW: %w", err)
		}
		c.EditWindow = d
	}
	return nil
}

func read(path string) (*JotterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config JotterConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}
