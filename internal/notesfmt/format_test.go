package notesfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/jotter/pkg/area"
	"github.com/dyluth/jotter/pkg/notes"
)

func TestFormatPreview(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{name: "empty content", content: "", expected: "-"},
		{name: "only markup", content: "<p></p>", expected: "-"},
		{name: "plain text", content: "hello", expected: "hello"},
		{name: "paragraphs become one line", content: "<p>First</p><p>Second</p>", expected: "First Second"},
		{name: "entities are decoded", content: "<p>Tom &amp; Jerry</p>", expected: "Tom & Jerry"},
		{name: "whitespace collapsed", content: "  a \n\n b  ", expected: "a b"},
		{name: "exactly 40 chars", content: strings.Repeat("a", 40), expected: strings.Repeat("a", 40)},
		{name: "41 chars - should truncate", content: strings.Repeat("a", 41), expected: strings.Repeat("a", 37) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatPreview(tt.content))
		})
	}
}

func TestFormatTitle(t *testing.T) {
	assert.Equal(t, "-", formatTitle(""))
	assert.Equal(t, "Plan", formatTitle("Plan"))
	assert.Equal(t, strings.Repeat("t", 21)+"...", formatTitle(strings.Repeat("t", 30)))
	assert.Equal(t, "note-c0ffee...", formatID("note-c0ffee00-1111-2222-3333-444455556666"))
}

func TestFormatNotes(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		count := FormatNotes(&buf, "corner", nil)
		assert.Contains(t, buf.String(), "No notes found in area 'corner'")
		assert.Equal(t, 0, count)
	})

	t.Run("rows", func(t *testing.T) {
		list := []notes.Note{
			{ID: "note-1", Title: "Plan", Content: "<p>Ship it</p>"},
			{ID: "note-2", Title: "", Content: ""},
		}

		var buf bytes.Buffer
		count := FormatNotes(&buf, "corner", list)

		output := buf.String()
		assert.Contains(t, output, "Notes in area 'corner'")
		assert.Contains(t, output, "note-1")
		assert.Contains(t, output, "Plan")
		assert.Contains(t, output, "Ship it")
		assert.Contains(t, output, "2 notes found")
		assert.Equal(t, 2, count)
	})
}

func TestFormatAreas(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		count := FormatAreas(&buf, nil, "covey")
		assert.Contains(t, buf.String(), "No areas found in town 'covey'")
		assert.Equal(t, 0, count)
	})

	t.Run("active and reset areas", func(t *testing.T) {
		col := notes.NewCollection(notes.Note{ID: "a"}, notes.Note{ID: "b"})
		active := area.NewSnapshot("corner", []string{"A", "B"}, col)
		reset := area.NewSnapshot("stage", nil, nil)

		var buf bytes.Buffer
		count := FormatAreas(&buf, []*area.Snapshot{&active, &reset}, "covey")

		lines := strings.Split(buf.String(), "\n")
		var cornerRow, stageRow string
		for _, l := range lines {
			if strings.HasPrefix(l, "corner") {
				cornerRow = l
			}
			if strings.HasPrefix(l, "stage") {
				stageRow = l
			}
		}
		assert.Contains(t, cornerRow, "active")
		assert.Contains(t, cornerRow, "2")
		assert.Contains(t, cornerRow, "A, B")
		assert.Contains(t, stageRow, "empty")
		assert.Contains(t, buf.String(), "2 areas found")
		assert.Equal(t, 2, count)
	})
}

func TestFormatJSONL(t *testing.T) {
	list := []notes.Note{
		{ID: "a", Title: "A", Content: "<p>1</p>"},
		{ID: "b", Title: "B", Content: "<p>2</p>"},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatJSONL(&buf, list))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded notes.Note
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, list[1], decoded)
}

func TestFormatSingleJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatSingleJSON(&buf, notes.Note{ID: "a", Title: "A"}))

	output := buf.String()
	assert.Contains(t, output, "\n  \"id\": \"a\"")
	assert.True(t, strings.HasSuffix(output, "}\n"))
}
