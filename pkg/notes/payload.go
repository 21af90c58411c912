package notes

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is the wire form of an area's notes field. It is exactly one of:
//   - a structured collection (JSON array)
//   - a legacy bare string, the content of a single note (JSON string)
//   - absent (JSON null or a missing field)
//
// The zero Payload is absent.
type Payload struct {
	notes  *Collection
	text   string
	legacy bool
}

// NotesPayload wraps a structured collection. A nil collection yields an
// absent payload.
func NotesPayload(c *Collection) Payload {
	return Payload{notes: c}
}

// LegacyText wraps a historical single-string notes value.
func LegacyText(content string) Payload {
	return Payload{text: content, legacy: true}
}

// Absent returns the payload of an area that has no notes.
func Absent() Payload {
	return Payload{}
}

// IsZero reports whether the payload is absent. The json omitzero option uses
// it to drop the field from snapshots.
func (p Payload) IsZero() bool {
	return p.notes == nil && !p.legacy
}

// Collection returns the structured collection, if the payload carries one.
func (p Payload) Collection() (*Collection, bool) {
	return p.notes, p.notes != nil
}

// Text returns the legacy string, if the payload carries one.
func (p Payload) Text() (string, bool) {
	return p.text, p.legacy
}

// MarshalJSON encodes the payload as an array, a string or null.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch {
	case p.notes != nil:
		return p.notes.MarshalJSON()
	case p.legacy:
		return json.Marshal(p.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts an array of notes, a legacy string or null.
func (p *Payload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*p = Payload{}
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("failed to unmarshal legacy notes string: %w", err)
		}
		*p = LegacyText(s)
	case trimmed[0] == '[':
		c := &Collection{}
		if err := c.UnmarshalJSON(trimmed); err != nil {
			return err
		}
		*p = NotesPayload(c)
	default:
		return fmt.Errorf("invalid notes payload: expected array, string or null")
	}
	return nil
}

// Normalize maps any payload onto a collection.
//
// Structured input is returned as-is, preserving pointer identity. A legacy
// string or an absent payload produces a new one-note collection with the
// default id and title; the string (or "") becomes the content.
//
// Normalize is idempotent by reference:
// Normalize(NotesPayload(Normalize(p))) == Normalize(p).
func Normalize(p Payload) *Collection {
	if p.notes != nil {
		return p.notes
	}
	return NewCollection(Note{
		ID:      DefaultNoteID,
		Title:   DefaultNoteTitle,
		Content: p.text,
	})
}
