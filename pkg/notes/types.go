package notes

import (
	"encoding/json"
	"fmt"
)

const (
	// DefaultNoteID is the id of the note synthesized from legacy or absent data.
	DefaultNoteID = "default-note-1"

	// DefaultNoteTitle is the title of every synthesized first note.
	DefaultNoteTitle = "Untitled Note 1"

	// SeedNoteID is the id of the note a freshly loaded map area starts with.
	SeedNoteID = "note-1"

	// NewNoteContent is the body given to notes created from scratch.
	NewNoteContent = "<p>New Note</p>"
)

// Note is a single document inside a note-taking area.
// Content is rich-text markup and is never interpreted here.
type Note struct {
	ID      string `json:"id" yaml:"id"`           // Unique within one collection, caller-assigned
	Title   string `json:"title" yaml:"title"`     // Display title (tab label)
	Content string `json:"content" yaml:"content"` // Rich-text markup
}

// Collection is an ordered, immutable sequence of notes. The order is the tab
// order shown to participants.
//
// A *Collection is never modified after construction. Methods that "change"
// a collection return a new one, which lets holders compare pointers to detect
// change.
type Collection struct {
	notes []Note
}

// NewCollection returns a collection holding a copy of the given notes.
func NewCollection(notes ...Note) *Collection {
	cp := make([]Note, len(notes))
	copy(cp, notes)
	return &Collection{notes: cp}
}

// Len returns the number of notes. A nil collection has length 0.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.notes)
}

// At returns the note at index i. It panics when i is out of range.
func (c *Collection) At(i int) Note {
	return c.notes[i]
}

// Notes returns a copy of the notes in display order.
func (c *Collection) Notes() []Note {
	if c == nil {
		return []Note{}
	}
	cp := make([]Note, len(c.notes))
	copy(cp, c.notes)
	return cp
}

// Index returns the position of the note with the given id, or -1.
func (c *Collection) Index(id string) int {
	if c == nil {
		return -1
	}
	for i, n := range c.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// IDs returns the set of note ids in the collection.
func (c *Collection) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, c.Len())
	if c == nil {
		return ids
	}
	for _, n := range c.notes {
		ids[n.ID] = struct{}{}
	}
	return ids
}

// Replace returns a new collection with the note at index i swapped for n.
func (c *Collection) Replace(i int, n Note) *Collection {
	next := c.Notes()
	next[i] = n
	return &Collection{notes: next}
}

// Append returns a new collection with the given notes added at the end.
func (c *Collection) Append(notes ...Note) *Collection {
	next := make([]Note, 0, c.Len()+len(notes))
	next = append(next, c.Notes()...)
	next = append(next, notes...)
	return &Collection{notes: next}
}

// Remove returns a new collection without the note at index i.
func (c *Collection) Remove(i int) *Collection {
	current := c.Notes()
	next := make([]Note, 0, len(current)-1)
	next = append(next, current[:i]...)
	next = append(next, current[i+1:]...)
	return &Collection{notes: next}
}

// Equal reports whether both collections hold the same notes in the same order.
// Mirrors use pointer identity for change detection; Equal is for callers that
// need value comparison.
func (c *Collection) Equal(other *Collection) bool {
	if c.Len() != other.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		if c.notes[i] != other.notes[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the collection as a JSON array (never null).
func (c *Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Notes())
}

// UnmarshalJSON decodes a JSON array of notes.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var decoded []Note
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("failed to unmarshal notes collection: %w", err)
	}
	if decoded == nil {
		decoded = []Note{}
	}
	c.notes = decoded
	return nil
}
