// Package board is the editing session behind a notes board: the tabs a
// participant sees, the active tab, and the import and export handlers. The
// embedding UI hands it the area's mirror and edit buffer explicitly.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dyluth/jotter/internal/editbuffer"
	"github.com/dyluth/jotter/internal/mirror"
	"github.com/dyluth/jotter/pkg/notes"
)

var (
	// ErrNoSuchTab is returned for a tab index outside the collection.
	ErrNoSuchTab = errors.New("no such tab")

	// ErrSessionClosed is returned by edits after Close.
	ErrSessionClosed = errors.New("session is closed")
)

// Mirror is the part of a mirror.Controller a session needs.
type Mirror interface {
	Notes() *notes.Collection
	OnNotesChange(fn mirror.NotesListener) (unsubscribe func())
	UpdateNotes(ctx context.Context, next *notes.Collection) error
}

// Session holds a participant's local view of an area's notes.
//
// Local edits replace the local collection at once and go to the authority
// through the edit buffer. A collection arriving from the authority replaces
// the local one and the active index is clamped to it.
type Session struct {
	mirror Mirror
	buffer *editbuffer.Buffer
	newID  func() string

	mu          sync.Mutex
	local       *notes.Collection
	active      int
	closed      bool
	unsubscribe func()
}

// NewSession opens a session on the mirror's current notes. newID generates
// ids for new tabs; nil uses notes.NewNoteID.
func NewSession(m Mirror, buffer *editbuffer.Buffer, newID func() string) *Session {
	if newID == nil {
		newID = notes.NewNoteID
	}

	s := &Session{
		mirror: m,
		buffer: buffer,
		newID:  newID,
		local:  m.Notes(),
	}
	s.unsubscribe = m.OnNotesChange(s.onRemoteChange)
	return s
}

func (s *Session) onRemoteChange(remote *notes.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || remote == s.local {
		return
	}
	s.local = remote
	if s.active >= remote.Len() {
		s.active = max(0, remote.Len()-1)
	}
}

// Notes returns the local collection.
func (s *Session) Notes() *notes.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

// Active returns the active tab index and its note. ok is false when the
// collection is empty.
func (s *Session) Active() (index int, note notes.Note, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active >= s.local.Len() {
		return s.active, notes.Note{}, false
	}
	return s.active, s.local.At(s.active), true
}

// Select makes tab i active.
func (s *Session) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= s.local.Len() {
		return fmt.Errorf("%w: %d", ErrNoSuchTab, i)
	}
	s.active = i
	return nil
}

// SetContent replaces the active note's content. Unchanged content is not
// submitted.
func (s *Session) SetContent(content string) error {
	return s.editActive(func(n *notes.Note) { n.Content = content })
}

// SetTitle replaces the active note's title.
func (s *Session) SetTitle(title string) error {
	return s.editActive(func(n *notes.Note) { n.Title = title })
}

// ImportIntoActive loads a single imported document into the active note.
func (s *Session) ImportIntoActive(content string) error {
	return s.SetContent(content)
}

func (s *Session) editActive(change func(*notes.Note)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.active >= s.local.Len() {
		return fmt.Errorf("%w: %d", ErrNoSuchTab, s.active)
	}

	current := s.local.At(s.active)
	updated := current
	change(&updated)
	if updated == current {
		return nil
	}

	return s.submit(s.local.Replace(s.active, updated))
}

// AddTab appends a fresh note and makes it active.
func (s *Session) AddTab() (notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return notes.Note{}, ErrSessionClosed
	}

	n := s.freshNote(s.local.Len() + 1)
	if err := s.submit(s.local.Append(n)); err != nil {
		return notes.Note{}, err
	}
	s.active = s.local.Len() - 1
	return n, nil
}

// CloseTab removes tab i. Closing the active tab activates the previous one
// (or the first); closing a tab before the active one keeps the same note
// active. Closing the only tab replaces it with a fresh note, so the
// collection is never empty.
func (s *Session) CloseTab(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if i < 0 || i >= s.local.Len() {
		return fmt.Errorf("%w: %d", ErrNoSuchTab, i)
	}

	if s.local.Len() == 1 {
		if err := s.submit(notes.NewCollection(s.freshNote(1))); err != nil {
			return err
		}
		s.active = 0
		return nil
	}

	active := s.active
	switch {
	case i == active:
		active = max(0, i-1)
	case i < active:
		active--
	}

	if err := s.submit(s.local.Remove(i)); err != nil {
		return err
	}
	s.active = active
	return nil
}

// Import merges a batch of external documents into the collection and sends
// the result as one update, bypassing the edit buffer. Pending buffered edits
// are part of the local collection and travel with it.
func (s *Session) Import(ctx context.Context, files []notes.Incoming) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if len(files) == 0 {
		return nil
	}

	merged := notes.MergeImported(s.local, files, s.newID)
	s.buffer.Cancel()
	if err := s.mirror.UpdateNotes(ctx, merged); err != nil {
		return fmt.Errorf("failed to import %d notes: %w", len(files), err)
	}
	s.local = merged
	return nil
}

// ExportActive renders the active note as a file.
func (s *Session) ExportActive() (notes.Exported, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active >= s.local.Len() {
		return notes.Exported{}, fmt.Errorf("%w: %d", ErrNoSuchTab, s.active)
	}
	n := s.local.At(s.active)
	return notes.Exported{
		NoteID:   n.ID,
		Filename: notes.ExportFilename(n.Title),
		Content:  n.Content,
	}, nil
}

// ExportAll renders every note as a file with unique names.
func (s *Session) ExportAll() []notes.Exported {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notes.ExportAll(s.local)
}

// Close tears the session down: it stops following remote changes and
// flushes any buffered edit. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.unsubscribe()
	return s.buffer.Close(ctx)
}

func (s *Session) freshNote(position int) notes.Note {
	return notes.Note{
		ID:      s.newID(),
		Title:   fmt.Sprintf("Untitled Note %d", position),
		Content: notes.NewNoteContent,
	}
}

// submit replaces the local collection and queues it. Caller holds s.mu.
func (s *Session) submit(next *notes.Collection) error {
	if err := s.buffer.Submit(next); err != nil {
		return err
	}
	s.local = next
	return nil
}
