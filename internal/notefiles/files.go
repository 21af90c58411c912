// Package notefiles moves notes between an area and the local filesystem:
// reading documents for import, writing exported notes, and watching an
// import directory for new documents.
package notefiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dyluth/jotter/pkg/notes"
)

// supportedExtensions are the document types accepted for import.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".html": true,
	".htm":  true,
}

// IsSupported reports whether path names an importable document.
func IsSupported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// ReadFile reads one document as an import candidate. The file contents
// become the note content unchanged.
func ReadFile(path string) (notes.Incoming, error) {
	if !IsSupported(path) {
		return notes.Incoming{}, fmt.Errorf("unsupported file type %q (expected .txt or .html)", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return notes.Incoming{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return notes.Incoming{
		Name:    filepath.Base(path),
		Content: string(data),
	}, nil
}

// ReadFiles reads several documents in the given order.
func ReadFiles(paths []string) ([]notes.Incoming, error) {
	out := make([]notes.Incoming, 0, len(paths))
	for _, p := range paths {
		in, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// ReadDir reads every supported document directly inside dir, sorted by file
// name. Subdirectories and other files are skipped.
func ReadDir(dir string) ([]notes.Incoming, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	return ReadFiles(paths)
}

// WriteFiles writes exported notes into dir, creating it if needed, and
// returns the written paths in order. Existing files are overwritten.
func WriteFiles(dir string, files []notes.Exported) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.Filename)
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
