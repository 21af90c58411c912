package notes

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// UntitledLabel is the display name used when an external name sanitizes to
// nothing.
const UntitledLabel = "Untitled"

// illegalNameChars are the characters that cannot appear in a file name on at
// least one of the platforms notes are exported to.
const illegalNameChars = `<>:"/\|?*`

// Incoming is one externally supplied note waiting to be merged, typically a
// file picked for import.
type Incoming struct {
	ID      string // Proposed id; empty or colliding ids are regenerated
	Name    string // External name, e.g. "meeting.html"
	Content string // Rich-text markup
}

// NewNoteID returns a fresh, globally unique note id.
func NewNoteID() string {
	return "note-" + uuid.NewString()
}

// DisplayName derives a note title from an external name. Any directory part
// and the extension are dropped, characters that are illegal in file names
// become "_", and an empty result falls back to UntitledLabel.
func DisplayName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, path.Ext(name))

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(illegalNameChars, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}

	sanitized := strings.TrimSpace(b.String())
	if sanitized == "" {
		return UntitledLabel
	}
	return sanitized
}

// DedupeNames makes every name unique while preserving order. The first
// occurrence keeps the bare name; later ones get " 2", " 3", ... skipping any
// suffix that is already taken.
func DedupeNames(names []string) []string {
	used := make(map[string]bool, len(names))
	nextSuffix := make(map[string]int)
	out := make([]string, 0, len(names))

	for _, name := range names {
		candidate := name
		if used[candidate] {
			k := nextSuffix[name]
			if k < 2 {
				k = 2
			}
			for used[fmt.Sprintf("%s %d", name, k)] {
				k++
			}
			candidate = fmt.Sprintf("%s %d", name, k)
			nextSuffix[name] = k + 1
		}
		used[candidate] = true
		out = append(out, candidate)
	}

	return out
}

// MergeImported appends a batch of incoming notes to existing and returns the
// merged collection. existing is not modified.
//
// Ids that are empty or collide with an id already present (in existing or
// earlier in the batch) are replaced using newID; a nil newID uses NewNoteID.
// Titles come from DisplayName and are deduplicated within the batch in
// processing order.
func MergeImported(existing *Collection, incoming []Incoming, newID func() string) *Collection {
	if newID == nil {
		newID = NewNoteID
	}

	taken := existing.IDs()
	names := make([]string, len(incoming))
	for i, in := range incoming {
		names[i] = DisplayName(in.Name)
	}
	titles := DedupeNames(names)

	processed := make([]Note, 0, len(incoming))
	for i, in := range incoming {
		id := in.ID
		for id == "" || hasID(taken, id) {
			id = newID()
		}
		taken[id] = struct{}{}

		processed = append(processed, Note{
			ID:      id,
			Title:   titles[i],
			Content: in.Content,
		})
	}

	return existing.Append(processed...)
}

func hasID(ids map[string]struct{}, id string) bool {
	_, ok := ids[id]
	return ok
}
