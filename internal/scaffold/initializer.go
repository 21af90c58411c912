package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/jotter/internal/authority"
	"github.com/dyluth/jotter/internal/config"
	"github.com/dyluth/jotter/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// MapFileName is the town map created next to jotter.yml.
const MapFileName = "town.yml"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize creates jotter.yml and a sample town map in dir.
// If force is true, existing files are replaced.
func Initialize(dir string, force bool) error {
	if force {
		if err := handleForce(dir); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles(dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := writeFiles(files); err != nil {
		return err
	}

	return validateCreatedFiles(dir)
}

// handleForce removes existing files if --force was specified
func handleForce(dir string) error {
	for _, name := range []string{config.DefaultPath, MapFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		printer.Warning("Removing existing %s...\n", name)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// getTemplateFiles reads all template files
func getTemplateFiles(dir string) ([]FileInfo, error) {
	templates := []struct {
		template string
		name     string
	}{
		{"templates/jotter.yml.tmpl", config.DefaultPath},
		{"templates/town.yml.tmpl", MapFileName},
	}

	files := make([]FileInfo, 0, len(templates))
	for _, t := range templates {
		content, err := templatesFS.ReadFile(t.template)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s template: %w", t.name, err)
		}
		files = append(files, FileInfo{
			Path:        filepath.Join(dir, t.name),
			Content:     content,
			Permissions: 0644,
		})
	}
	return files, nil
}

// writeFiles writes all template files to disk
func writeFiles(files []FileInfo) error {
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles loads the created files the way the authority will
func validateCreatedFiles(dir string) error {
	if _, err := config.Load(filepath.Join(dir, config.DefaultPath)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultPath, err)
	}

	if _, err := authority.LoadMap(filepath.Join(dir, MapFileName), nil); err != nil {
		return fmt.Errorf("created %s is invalid: %w", MapFileName, err)
	}

	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	printer.Success("\nInitialized jotter configuration!\n")
	printer.Info("\nCreated:\n")
	printer.Info("  ✓ %s\n", config.DefaultPath)
	printer.Info("  ✓ %s\n", MapFileName)
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Set 'town' in %s to a name unique on your Redis\n", config.DefaultPath)
	printer.Info("  2. Replace the sample areas in %s with the areas of your map\n", MapFileName)
	printer.Info("  3. Start the authority, then run 'jotter areas'\n")
}
