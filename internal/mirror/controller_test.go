package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/jotter/pkg/area"
	"github.com/dyluth/jotter/pkg/notes"
)

// recordingSender captures commands instead of delivering them.
type recordingSender struct {
	mu       sync.Mutex
	areaIDs  []string
	commands []area.Command
	err      error
}

func (r *recordingSender) SendCommand(_ context.Context, areaID string, cmd area.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.areaIDs = append(r.areaIDs, areaID)
	r.commands = append(r.commands, cmd)
	return nil
}

func TestNew_Normalizes(t *testing.T) {
	c := New("corner", notes.LegacyText("New Note"), &recordingSender{})

	got := c.Notes()
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "New Note", got.At(0).Content)
	assert.Equal(t, notes.DefaultNoteTitle, got.At(0).Title)
	assert.Equal(t, notes.DefaultNoteID, got.At(0).ID)
	assert.Equal(t, "Notes", c.FriendlyName())
	assert.False(t, c.IsActive())
}

func TestFromSnapshot(t *testing.T) {
	col := notes.NewCollection(notes.Note{ID: "n1"})
	c := FromSnapshot(area.NewSnapshot("corner", []string{"A", "B"}, col), &recordingSender{})

	assert.Equal(t, "corner", c.ID())
	assert.Same(t, col, c.Notes())
	assert.Equal(t, []string{"A", "B"}, c.Occupants())
	assert.True(t, c.IsActive())
}

func TestApplySnapshot_ChangeDetectionMinimality(t *testing.T) {
	c := New("corner", notes.Absent(), &recordingSender{})
	var raised []*notes.Collection
	c.OnNotesChange(func(n *notes.Collection) { raised = append(raised, n) })

	col := notes.NewCollection(notes.Note{ID: "n1", Title: "T"})
	c.ApplySnapshot(area.NewSnapshot("corner", nil, col))
	c.ApplySnapshot(area.NewSnapshot("corner", nil, col))
	require.Len(t, raised, 1, "same object twice raises at most one event")
	assert.Same(t, col, raised[0])

	clone := notes.NewCollection(notes.Note{ID: "n1", Title: "T"})
	c.ApplySnapshot(area.NewSnapshot("corner", nil, clone))
	require.Len(t, raised, 2, "equal contents in a new object still raise an event")
	assert.Same(t, clone, c.Notes())
}

func TestApplySnapshot_AbsentNotesAlwaysChange(t *testing.T) {
	c := New("corner", notes.Absent(), &recordingSender{})
	count := 0
	c.OnNotesChange(func(*notes.Collection) { count++ })

	c.ApplySnapshot(area.NewSnapshot("corner", nil, nil))
	c.ApplySnapshot(area.NewSnapshot("corner", nil, nil))

	assert.Equal(t, 2, count)
	assert.Equal(t, notes.DefaultNoteID, c.Notes().At(0).ID)
}

func TestApplySnapshot_LocalCopyReplacedBeforeNotify(t *testing.T) {
	c := New("corner", notes.Absent(), &recordingSender{})
	col := notes.NewCollection(notes.Note{ID: "n1"})

	var seen *notes.Collection
	c.OnNotesChange(func(*notes.Collection) { seen = c.Notes() })
	c.ApplySnapshot(area.NewSnapshot("corner", nil, col))

	assert.Same(t, col, seen)
}

func TestApplySnapshot_IgnoresOtherAreas(t *testing.T) {
	c := New("corner", notes.Absent(), &recordingSender{})
	before := c.Notes()
	c.ApplySnapshot(area.NewSnapshot("stage", []string{"A"}, notes.NewCollection()))

	assert.Same(t, before, c.Notes())
	assert.Empty(t, c.Occupants())
}

func TestApplySnapshot_Occupants(t *testing.T) {
	col := notes.NewCollection(notes.Note{ID: "n1"})
	c := New("corner", notes.NotesPayload(col), &recordingSender{})
	var changes [][]string
	c.OnOccupantsChange(func(ids []string) { changes = append(changes, ids) })

	c.ApplySnapshot(area.NewSnapshot("corner", []string{"A"}, col))
	c.ApplySnapshot(area.NewSnapshot("corner", []string{"A"}, col))
	c.ApplySnapshot(area.NewSnapshot("corner", []string{"A", "B"}, col))

	assert.Equal(t, [][]string{{"A"}, {"A", "B"}}, changes)
}

func TestListeners(t *testing.T) {
	c := New("corner", notes.Absent(), &recordingSender{})

	var first, second int
	unsubscribeFirst := c.OnNotesChange(func(*notes.Collection) { first++ })
	c.OnNotesChange(func(*notes.Collection) { second++ })

	c.ApplySnapshot(area.NewSnapshot("corner", nil, notes.NewCollection(notes.Note{ID: "a"})))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)

	unsubscribeFirst()
	unsubscribeFirst()
	c.ApplySnapshot(area.NewSnapshot("corner", nil, notes.NewCollection(notes.Note{ID: "b"})))
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestListeners_MayUnsubscribeDuringNotify(t *testing.T) {
	c := New("corner", notes.Absent(), &recordingSender{})

	calls := 0
	var unsubscribe func()
	unsubscribe = c.OnNotesChange(func(*notes.Collection) {
		calls++
		unsubscribe()
	})

	c.ApplySnapshot(area.NewSnapshot("corner", nil, notes.NewCollection()))
	c.ApplySnapshot(area.NewSnapshot("corner", nil, notes.NewCollection()))
	assert.Equal(t, 1, calls)
}

func TestUpdateNotes(t *testing.T) {
	sender := &recordingSender{}
	c := New("corner", notes.Absent(), sender)
	before := c.Notes()

	next := notes.NewCollection(notes.Note{ID: "n1", Title: "T"})
	require.NoError(t, c.UpdateNotes(context.Background(), next))

	require.Len(t, sender.commands, 1)
	assert.Equal(t, "corner", sender.areaIDs[0])
	assert.Equal(t, area.CommandNoteTakingAreaUpdate, sender.commands[0].Type)
	sent, ok := sender.commands[0].Notes.Collection()
	require.True(t, ok)
	assert.Same(t, next, sent)
	assert.Same(t, before, c.Notes(), "local state changes only through snapshots")

	t.Run("propagates transport errors", func(t *testing.T) {
		sender.err = errors.New("redis down")
		err := c.UpdateNotes(context.Background(), next)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis down")
	})
}

func TestToSnapshot(t *testing.T) {
	col := notes.NewCollection(notes.Note{ID: "n1"})
	c := FromSnapshot(area.NewSnapshot("corner", []string{"A"}, col), &recordingSender{})

	snap := c.ToSnapshot()
	assert.Equal(t, "corner", snap.ID)
	assert.Equal(t, area.TypeNoteTakingArea, snap.Type)
	assert.Equal(t, []string{"A"}, snap.Occupants)
	got, ok := snap.Notes.Collection()
	require.True(t, ok)
	assert.Same(t, col, got)

	empty := New("corner", notes.NotesPayload(notes.NewCollection()), &recordingSender{})
	assert.True(t, empty.ToSnapshot().Notes.IsZero())
}
