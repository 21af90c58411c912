package filter

import (
	"path/filepath"
	"strings"

	"github.com/dyluth/jotter/pkg/notes"
)

// Criteria defines filtering criteria for notes.
// All filters are ANDed together - a note must match ALL criteria to pass.
type Criteria struct {
	TitleGlob string // Glob pattern for the title, case-insensitive, empty = no filter
	Contains  string // Substring of the content, case-insensitive, empty = no filter
}

// Matches returns true if the note matches all filter criteria.
// Empty criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(n notes.Note) bool {
	if c.TitleGlob != "" {
		matched, err := filepath.Match(strings.ToLower(c.TitleGlob), strings.ToLower(n.Title))
		if err != nil || !matched {
			return false
		}
	}

	if c.Contains != "" && !strings.Contains(strings.ToLower(n.Content), strings.ToLower(c.Contains)) {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.TitleGlob != "" || c.Contains != ""
}

// Apply returns the notes of col that match, in collection order.
func (c *Criteria) Apply(col *notes.Collection) []notes.Note {
	var out []notes.Note
	for _, n := range col.Notes() {
		if c.Matches(n) {
			out = append(out, n)
		}
	}
	return out
}
