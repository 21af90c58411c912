// Package notesfmt renders areas and notes for the jotter CLI.
package notesfmt

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/dyluth/jotter/pkg/area"
	"github.com/dyluth/jotter/pkg/notes"
)

const previewWidth = 40

// FormatAreas writes one row per area: id, state, occupants, and note count.
// Returns the number of areas formatted.
func FormatAreas(w io.Writer, snaps []*area.Snapshot, town string) int {
	if len(snaps) == 0 {
		fmt.Fprintf(w, "No areas found in town '%s'\n", town)
		return 0
	}

	fmt.Fprintf(w, "Note-taking areas in town '%s':\n\n", town)

	fmt.Fprintf(w, "%-16s %-7s %-5s %s\n", "AREA", "STATE", "NOTES", "OCCUPANTS")
	fmt.Fprintf(w, "%-16s %-7s %-5s %s\n", "----------------", "-------", "-----", "------------------------")

	for _, s := range snaps {
		state, count := "empty", "-"
		if len(s.Occupants) > 0 {
			state = "active"
		}
		if !s.Notes.IsZero() {
			count = fmt.Sprintf("%d", notes.Normalize(s.Notes).Len())
		}
		fmt.Fprintf(w, "%-16s %-7s %-5s %s\n",
			truncate(s.ID, 16),
			state,
			count,
			formatOccupants(s.Occupants),
		)
	}

	countMsg := "area"
	if len(snaps) != 1 {
		countMsg = "areas"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(snaps), countMsg)

	return len(snaps)
}

// FormatNotes writes notes as a table with their tab number, id, title, and
// a one-line content preview. Returns the number of notes formatted.
func FormatNotes(w io.Writer, areaID string, list []notes.Note) int {
	if len(list) == 0 {
		fmt.Fprintf(w, "No notes found in area '%s'\n", areaID)
		return 0
	}

	fmt.Fprintf(w, "Notes in area '%s':\n\n", areaID)

	fmt.Fprintf(w, "%-3s %-14s %-24s %s\n", "#", "ID", "TITLE", "PREVIEW")
	fmt.Fprintf(w, "%-3s %-14s %-24s %s\n", "---", "--------------", "------------------------", "----------------------------------------")

	for i, n := range list {
		fmt.Fprintf(w, "%-3d %-14s %-24s %s\n",
			i+1,
			formatID(n.ID),
			formatTitle(n.Title),
			formatPreview(n.Content),
		)
	}

	countMsg := "note"
	if len(list) != 1 {
		countMsg = "notes"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(list), countMsg)

	return len(list)
}

// FormatJSONL writes notes as line-delimited JSON, one note per line.
func FormatJSONL(w io.Writer, list []notes.Note) error {
	for _, n := range list {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("failed to marshal note to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes a value as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// formatID shortens generated ids ("note-<uuid>") for compact display.
func formatID(id string) string {
	return truncate(id, 14)
}

func formatTitle(title string) string {
	if title == "" {
		return "-"
	}
	return truncate(title, 24)
}

// formatPreview reduces rich-text content to its visible text on one line,
// truncated to previewWidth. Empty content returns "-".
func formatPreview(content string) string {
	var b strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	text := strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
	if text == "" {
		return "-"
	}
	return truncate(text, previewWidth)
}

func formatOccupants(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

// truncate cuts s to limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
