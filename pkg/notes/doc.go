// Package notes defines the note data model shared by the area authority and
// every client mirror.
//
// # Overview
//
// A Note is an id, a title and opaque rich-text content. Notes live in a
// Collection, an ordered and immutable sequence. Holders share *Collection
// values and never modify them: every edit helper returns a new collection, so
// pointer identity tells a mirror whether anything changed.
//
// # Legacy payloads
//
// The notes field on the wire has historically been a bare string (the
// content of a single note) or missing entirely. Payload captures all three
// shapes and Normalize maps every shape onto a Collection:
//
//	c := notes.Normalize(notes.LegacyText("<p>hello</p>"))
//	// c holds one note: default-note-1 / "Untitled Note 1" / "<p>hello</p>"
//
//	same := notes.Normalize(notes.NotesPayload(c))
//	// same == c (structured input is returned untouched)
//
// # Import and export naming
//
// MergeImported appends an externally supplied batch to a collection, fixing
// id collisions and deduplicating display names ("Notes", "Notes 2", ...).
// ExportFilename and ExportAll derive file names for the opposite direction.
package notes
