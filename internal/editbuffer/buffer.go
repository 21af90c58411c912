// Package editbuffer coalesces rapid local edits into single notes updates.
package editbuffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/jotter/pkg/notes"
)

// DefaultWindow is the coalescing window used when none is configured.
const DefaultWindow = 150 * time.Millisecond

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("edit buffer is closed")

// Updater sends a collection to the authority. *mirror.Controller implements it.
type Updater interface {
	UpdateNotes(ctx context.Context, next *notes.Collection) error
}

// Buffer holds the latest local collection and sends it once no new edit has
// arrived for a full window (trailing-edge debounce). Only the newest
// collection is ever sent; intermediate edits are dropped.
//
// Sends never overlap and leave in submission order.
type Buffer struct {
	updater Updater
	window  time.Duration
	logger  *zap.Logger

	sendMu sync.Mutex // held for the duration of a send

	mu         sync.Mutex
	pending    *notes.Collection
	timer      *time.Timer
	generation uint64
	closed     bool
}

// New creates a buffer. A window of zero or less uses DefaultWindow.
func New(updater Updater, window time.Duration, logger *zap.Logger) *Buffer {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Buffer{
		updater: updater,
		window:  window,
		logger:  logger,
	}
}

// Window returns the coalescing window.
func (b *Buffer) Window() time.Duration {
	return b.window
}

// Submit records next as the latest local state and restarts the window.
func (b *Buffer) Submit(next *notes.Collection) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	b.pending = next
	b.generation++
	gen := b.generation

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.window, func() { b.fire(gen) })
	return nil
}

// Pending returns the collection waiting to be sent, or nil.
func (b *Buffer) Pending() *notes.Collection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Flush stops the timer and sends any pending collection now, returning the
// send error.
func (b *Buffer) Flush(ctx context.Context) error {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	next := b.take()
	if next == nil {
		return nil
	}
	return b.send(ctx, next)
}

// Cancel stops the timer and drops any pending collection.
func (b *Buffer) Cancel() {
	b.take()
}

// Close flushes and rejects further submissions. It is the teardown hook of
// the editing surface; calling it more than once is safe.
func (b *Buffer) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	return b.Flush(ctx)
}

// fire runs on the timer goroutine. A timer from an older generation was
// superseded by a later Submit and does nothing.
func (b *Buffer) fire(gen uint64) {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	b.mu.Lock()
	if gen != b.generation || b.pending == nil {
		b.mu.Unlock()
		return
	}
	next := b.pending
	b.pending = nil
	b.timer = nil
	b.mu.Unlock()

	if err := b.send(context.Background(), next); err != nil {
		b.logger.Warn("Failed to send coalesced notes update", zap.Error(err))
	}
}

// take clears the pending collection and stops the timer.
func (b *Buffer) take() *notes.Collection {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.generation++

	next := b.pending
	b.pending = nil
	return next
}

func (b *Buffer) send(ctx context.Context, next *notes.Collection) error {
	if err := b.updater.UpdateNotes(ctx, next); err != nil {
		return fmt.Errorf("failed to flush edits: %w", err)
	}
	return nil
}
