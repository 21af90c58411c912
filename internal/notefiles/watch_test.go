package notefiles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dyluth/jotter/pkg/notes"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]notes.Incoming
	err     error
}

func (r *batchRecorder) record(_ context.Context, batch []notes.Incoming) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
	return r.err
}

func (r *batchRecorder) snapshot() [][]notes.Incoming {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]notes.Incoming(nil), r.batches...)
}

func startWatcher(t *testing.T, dir string, rec *batchRecorder) context.CancelFunc {
	t.Helper()
	w, err := NewWatcher(dir, 100*time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, w.Run(ctx, rec.record))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestWatcher_BatchesBurst(t *testing.T) {
	dir := t.TempDir()
	rec := &batchRecorder{}
	startWatcher(t, dir, rec)

	writeFile(t, dir, "b.txt", "two")
	writeFile(t, dir, "a.html", "one")
	writeFile(t, dir, "ignored.md", "nope")

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)

	batch := rec.snapshot()[0]
	assert.Equal(t, []notes.Incoming{
		{Name: "a.html", Content: "one"},
		{Name: "b.txt", Content: "two"},
	}, batch)

	time.Sleep(250 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestWatcher_KeepsRunningAfterBatchError(t *testing.T) {
	dir := t.TempDir()
	rec := &batchRecorder{err: errors.New("authority unavailable")}
	startWatcher(t, dir, rec)

	writeFile(t, dir, "first.txt", "1")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)

	writeFile(t, dir, "second.txt", "2")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "second.txt", rec.snapshot()[1][0].Name)
}

func TestWatcher_DeliversPendingOnShutdown(t *testing.T) {
	dir := t.TempDir()
	rec := &batchRecorder{}

	w, err := NewWatcher(dir, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, rec.record) }()

	writeFile(t, dir, "late.txt", "x")
	// Give fsnotify a moment to report the write before shutting down.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}

	batches := rec.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, "late.txt", batches[0][0].Name)
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher(t.TempDir()+"/missing", 0, nil)
	assert.Error(t, err)
}
