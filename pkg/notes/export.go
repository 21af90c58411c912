package notes

import (
	"strings"
	"unicode/utf16"
)

const (
	exportExtension   = ".html"
	defaultExportStem = "notes"
)

// Exported is one note rendered as a file.
type Exported struct {
	NoteID   string
	Filename string
	Content  string
}

// exportStem replaces every rune outside ASCII [A-Za-z0-9] with "_" and
// lowercases the rest. Runes outside the Basic Multilingual Plane count as two
// UTF-16 code units and become "__". An empty title uses the default stem.
func exportStem(title string) string {
	if title == "" {
		return defaultExportStem
	}
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + 'a' - 'A')
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteString(strings.Repeat("_", max(utf16.RuneLen(r), 1)))
		}
	}
	return b.String()
}

// ExportFilename returns the download name for a single note,
// e.g. "Team Sync!" -> "team_sync_.html", "" -> "notes.html".
func ExportFilename(title string) string {
	return exportStem(title) + exportExtension
}

// ExportAll renders every note of c as a file, in collection order. Notes
// whose titles map to the same file name get numbered suffixes.
func ExportAll(c *Collection) []Exported {
	all := c.Notes()
	stems := make([]string, len(all))
	for i, n := range all {
		stems[i] = exportStem(n.Title)
	}
	stems = DedupeNames(stems)

	out := make([]Exported, len(all))
	for i, n := range all {
		out[i] = Exported{
			NoteID:   n.ID,
			Filename: stems[i] + exportExtension,
			Content:  n.Content,
		}
	}
	return out
}
