package editbuffer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/jotter/pkg/notes"
)

type recordingUpdater struct {
	mu   sync.Mutex
	sent []*notes.Collection
	err  error
}

func (r *recordingUpdater) UpdateNotes(_ context.Context, next *notes.Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, next)
	return nil
}

func (r *recordingUpdater) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recordingUpdater) last() *notes.Collection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return nil
	}
	return r.sent[len(r.sent)-1]
}

func edit(content string) *notes.Collection {
	return notes.NewCollection(notes.Note{ID: "n1", Title: "T", Content: content})
}

func TestNew_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, New(&recordingUpdater{}, 0, nil).Window())
	assert.Equal(t, 20*time.Millisecond, New(&recordingUpdater{}, 20*time.Millisecond, nil).Window())
}

func TestSubmit_CoalescesBurst(t *testing.T) {
	u := &recordingUpdater{}
	b := New(u, 50*time.Millisecond, nil)

	var final *notes.Collection
	for _, keystroke := range []string{"h", "he", "hel", "hell", "hello"} {
		final = edit(keystroke)
		require.NoError(t, b.Submit(final))
	}

	require.Eventually(t, func() bool { return u.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Same(t, final, u.last())

	// Nothing else trickles out afterwards.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, u.count())
	assert.Nil(t, b.Pending())
}

func TestSubmit_SeparateBurstsSendSeparately(t *testing.T) {
	u := &recordingUpdater{}
	b := New(u, 20*time.Millisecond, nil)

	require.NoError(t, b.Submit(edit("first")))
	require.Eventually(t, func() bool { return u.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Submit(edit("second")))
	require.Eventually(t, func() bool { return u.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "second", u.last().At(0).Content)
}

func TestFlush_SendsImmediately(t *testing.T) {
	u := &recordingUpdater{}
	b := New(u, time.Hour, nil)

	latest := edit("typed just before teardown")
	require.NoError(t, b.Submit(edit("older")))
	require.NoError(t, b.Submit(latest))

	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, 1, u.count())
	assert.Same(t, latest, u.last())

	t.Run("nothing pending is a no-op", func(t *testing.T) {
		require.NoError(t, b.Flush(context.Background()))
		assert.Equal(t, 1, u.count())
	})
}

func TestFlush_CancelsTimer(t *testing.T) {
	u := &recordingUpdater{}
	b := New(u, 30*time.Millisecond, nil)

	require.NoError(t, b.Submit(edit("x")))
	require.NoError(t, b.Flush(context.Background()))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, u.count(), "the timer must not send a second time")
}

func TestFlush_ReturnsSendError(t *testing.T) {
	u := &recordingUpdater{err: errors.New("redis down")}
	b := New(u, time.Hour, nil)

	require.NoError(t, b.Submit(edit("x")))
	err := b.Flush(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestCancel_DropsPending(t *testing.T) {
	u := &recordingUpdater{}
	b := New(u, 20*time.Millisecond, nil)

	require.NoError(t, b.Submit(edit("x")))
	b.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, u.count())
	assert.Nil(t, b.Pending())
}

func TestClose(t *testing.T) {
	u := &recordingUpdater{}
	b := New(u, time.Hour, nil)

	latest := edit("last words")
	require.NoError(t, b.Submit(latest))
	require.NoError(t, b.Close(context.Background()))

	assert.Equal(t, 1, u.count())
	assert.Same(t, latest, u.last())

	assert.ErrorIs(t, b.Submit(edit("too late")), ErrClosed)
	assert.NoError(t, b.Close(context.Background()))
	assert.Equal(t, 1, u.count())
}
