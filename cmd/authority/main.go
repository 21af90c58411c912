package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dyluth/jotter/internal/authority"
	"github.com/dyluth/jotter/internal/config"
	"github.com/dyluth/jotter/internal/gateway"
	"github.com/dyluth/jotter/internal/logging"
	"github.com/dyluth/jotter/pkg/area"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load configuration (jotter.yml plus JOTTER_* overrides)
	configPath := os.Getenv("JOTTER_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, logging.JSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("town", cfg.Town))

	if err := run(cfg, logger); err != nil {
		logger.Error("Authority stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.JotterConfig, logger *zap.Logger) error {
	// 2. Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis_url: %w", err)
	}

	client, err := area.NewClient(redisOpts, cfg.Town)
	if err != nil {
		return fmt.Errorf("failed to create area client: %w", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("redis not accessible: %w", err)
	}

	// 3. Build the note-taking areas from the town map; any malformed area
	// aborts startup
	areas, err := authority.LoadMap(cfg.Map, client)
	if err != nil {
		return err
	}
	logger.Info("Town map loaded", zap.String("map", cfg.Map), zap.Int("areas", len(areas)))

	metrics := authority.NewMetrics("jotter")
	engine := authority.NewEngine(client, areas, logger, metrics)

	// 4. HTTP surface: health, metrics, area listing, and the gateway
	httpServer := authority.NewHealthServer(cfg.Listen, client, engine, metrics, logger)

	var gw *gateway.Server
	if cfg.GatewayEnabled() {
		gw = gateway.NewServer(client, gatewayConfig(cfg), logger.Named("gateway"))
		httpServer.Handle("/ws/{areaID}", gw)
	}

	if err := httpServer.Start(); err != nil {
		return err
	}

	// 5. Setup graceful shutdown
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run(runCtx)
	}()

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down gracefully", zap.String("signal", sig.String()))
		cancel()
		runErr = <-errCh
	case runErr = <-errCh:
	}

	if gw != nil {
		gw.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("Authority stopped")
	return runErr
}

func gatewayConfig(cfg *config.JotterConfig) *gateway.Config {
	gc := gateway.DefaultConfig()
	if cfg.Gateway == nil || len(cfg.Gateway.AllowedOrigins) == 0 {
		return gc
	}

	allowed := cfg.Gateway.AllowedOrigins
	gc.CheckOrigin = func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
	return gc
}
