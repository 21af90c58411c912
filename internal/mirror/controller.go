// Package mirror is the participant side of the note-taking protocol: a local
// read replica of one area that raises change notifications and forwards
// edits to the authority.
package mirror

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dyluth/jotter/pkg/area"
	"github.com/dyluth/jotter/pkg/notes"
)

// CommandSender delivers commands to the authority. *area.Client implements it.
type CommandSender interface {
	SendCommand(ctx context.Context, areaID string, cmd area.Command) error
}

// NotesListener is called with the new collection after a notes change.
type NotesListener func(*notes.Collection)

// OccupantsListener is called with the new occupant ids after they change.
type OccupantsListener func([]string)

type listener[F any] struct {
	id int
	fn F
}

// Controller mirrors one note-taking area.
//
// The held collection is never modified; every change replaces it, and a
// notesChange is raised only when the replacement is a different object.
// Listeners are called after the local copy is replaced and outside the
// controller's lock, so they may call back into the controller.
type Controller struct {
	id     string
	sender CommandSender

	mu                 sync.Mutex
	notes              *notes.Collection
	occupants          []string
	nextListenerID     int
	notesListeners     []listener[NotesListener]
	occupantsListeners []listener[OccupantsListener]
}

// New creates a controller. The initial payload is normalized exactly as the
// authority normalizes it.
func New(id string, initial notes.Payload, sender CommandSender) *Controller {
	return &Controller{
		id:        id,
		sender:    sender,
		notes:     notes.Normalize(initial),
		occupants: []string{},
	}
}

// FromSnapshot creates a controller seeded with a snapshot's notes and occupants.
func FromSnapshot(s area.Snapshot, sender CommandSender) *Controller {
	c := New(s.ID, s.Notes, sender)
	c.occupants = slices.Clone(s.Occupants)
	if c.occupants == nil {
		c.occupants = []string{}
	}
	return c
}

// ID returns the area id.
func (c *Controller) ID() string {
	return c.id
}

// FriendlyName returns the label shown to participants.
func (c *Controller) FriendlyName() string {
	return area.FriendlyName
}

// Notes returns the current collection. It is always normalized.
func (c *Controller) Notes() *notes.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notes
}

// Occupants returns the ids of the players in the area.
func (c *Controller) Occupants() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.occupants)
}

// IsActive reports whether anyone is in the area.
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.occupants) > 0
}

// ToSnapshot renders the mirrored state. The notes field is omitted when the
// local collection is empty.
func (c *Controller) ToSnapshot() area.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var held *notes.Collection
	if c.notes.Len() > 0 {
		held = c.notes
	}
	return area.NewSnapshot(c.id, c.occupants, held)
}

// ApplySnapshot folds an authoritative snapshot into the mirror. Snapshots of
// other areas are ignored.
//
// Notes are normalized and compared by reference: a new object raises
// notesChange even if its contents are identical, the same object raises
// nothing. Occupants are compared by value and raise occupantsChange.
func (c *Controller) ApplySnapshot(s area.Snapshot) {
	if s.ID != c.id {
		return
	}

	incoming := notes.Normalize(s.Notes)

	c.mu.Lock()
	notesChanged := incoming != c.notes
	c.notes = incoming

	occupantsChanged := !slices.Equal(c.occupants, s.Occupants)
	if occupantsChanged {
		c.occupants = slices.Clone(s.Occupants)
		if c.occupants == nil {
			c.occupants = []string{}
		}
	}
	occupants := slices.Clone(c.occupants)

	notesListeners := slices.Clone(c.notesListeners)
	occupantsListeners := slices.Clone(c.occupantsListeners)
	c.mu.Unlock()

	if occupantsChanged {
		for _, l := range occupantsListeners {
			l.fn(slices.Clone(occupants))
		}
	}
	if notesChanged {
		for _, l := range notesListeners {
			l.fn(incoming)
		}
	}
}

// UpdateNotes sends a NoteTakingAreaUpdate for the given collection. The
// local copy is not touched; the change arrives later as a snapshot, for the
// sender too.
func (c *Controller) UpdateNotes(ctx context.Context, next *notes.Collection) error {
	if err := c.sender.SendCommand(ctx, c.id, area.NewUpdateCommand(next)); err != nil {
		return fmt.Errorf("failed to send notes update for %s: %w", c.id, err)
	}
	return nil
}

// OnNotesChange registers fn for notesChange and returns a function that
// removes it.
func (c *Controller) OnNotesChange(fn NotesListener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextListenerID
	c.nextListenerID++
	c.notesListeners = append(c.notesListeners, listener[NotesListener]{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.notesListeners = slices.DeleteFunc(c.notesListeners, func(l listener[NotesListener]) bool {
			return l.id == id
		})
	}
}

// OnOccupantsChange registers fn for occupantsChange and returns a function
// that removes it.
func (c *Controller) OnOccupantsChange(fn OccupantsListener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextListenerID
	c.nextListenerID++
	c.occupantsListeners = append(c.occupantsListeners, listener[OccupantsListener]{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.occupantsListeners = slices.DeleteFunc(c.occupantsListeners, func(l listener[OccupantsListener]) bool {
			return l.id == id
		})
	}
}
