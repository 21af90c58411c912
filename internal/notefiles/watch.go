package notefiles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dyluth/jotter/pkg/notes"
)

// DefaultQuietPeriod is how long a directory must stay quiet before the
// collected documents are delivered.
const DefaultQuietPeriod = 500 * time.Millisecond

// BatchFunc receives each batch of documents that appeared in the watched
// directory. An error is logged and the watcher keeps running.
type BatchFunc func(ctx context.Context, batch []notes.Incoming) error

// Watcher delivers documents written into a directory in batches. Files
// created or written within one quiet period form a single batch, so a bulk
// copy becomes one import.
type Watcher struct {
	dir     string
	quiet   time.Duration
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewWatcher starts watching dir. Events are collected from this call on;
// call Run to deliver them.
func NewWatcher(dir string, quiet time.Duration, logger *zap.Logger) (*Watcher, error) {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:     dir,
		quiet:   quiet,
		watcher: fsWatcher,
		logger:  logger,
	}, nil
}

// Run delivers batches to fn until ctx is cancelled, then closes the watcher.
// Documents still waiting for their quiet period are delivered before Run
// returns.
func (w *Watcher) Run(ctx context.Context, fn BatchFunc) error {
	defer w.watcher.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.quiet)
	timer.Stop()

	deliver := func(ctx context.Context) {
		if len(pending) == 0 {
			return
		}
		batch := w.collect(pending)
		clear(pending)
		if len(batch) == 0 {
			return
		}

		w.logger.Info("Importing documents", zap.String("dir", w.dir), zap.Int("count", len(batch)))
		if err := fn(ctx, batch); err != nil {
			w.logger.Error("Import failed", zap.Int("count", len(batch)), zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			deliver(context.WithoutCancel(ctx))
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsSupported(event.Name) {
				continue
			}
			w.logger.Debug("Document changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			pending[event.Name] = struct{}{}
			timer.Reset(w.quiet)

		case <-timer.C:
			deliver(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// collect reads the pending files in name order, skipping any that vanished
// or turned out to be directories.
func (w *Watcher) collect(pending map[string]struct{}) []notes.Incoming {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	batch := make([]notes.Incoming, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		in, err := ReadFile(p)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				w.logger.Warn("Skipping unreadable document", zap.String("file", p), zap.Error(err))
			}
			continue
		}
		batch = append(batch, in)
	}
	return batch
}
