package authority

import (
	"context"
	"fmt"
	"sync"

	"github.com/dyluth/jotter/pkg/area"
	"github.com/dyluth/jotter/pkg/notes"
)

// Emitter broadcasts protocol events to the participants of a town.
// *area.Client implements it over Redis.
type Emitter interface {
	Emit(ctx context.Context, e area.Event) error
}

// Player is a participant known to the authority.
type Player struct {
	ID       string
	Location area.Location
}

// BoundingBox is the rectangle an area covers on the town map.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height
}

// NoteArea is the authoritative state of one note-taking area: its occupant
// roster and its notes.
//
// An area with no occupants is Empty. The first Add makes it Active; the Remove
// of the last occupant resets its notes to nil and makes it Empty again.
// Commands are only accepted while Active.
//
// All methods are safe for concurrent use; they are serialized by an internal
// mutex, and every broadcast happens while it is held so snapshots leave in the
// order the state changed.
type NoteArea struct {
	mu        sync.Mutex
	id        string
	box       BoundingBox
	emitter   Emitter
	occupants []*Player
	notes     *notes.Collection // nil once reset
}

// NewNoteArea creates an area. The initial payload is normalized, so the area
// always starts with at least one note.
func NewNoteArea(id string, initial notes.Payload, box BoundingBox, emitter Emitter) *NoteArea {
	return &NoteArea{
		id:      id,
		box:     box,
		emitter: emitter,
		notes:   notes.Normalize(initial),
	}
}

// ID returns the area id.
func (a *NoteArea) ID() string {
	return a.id
}

// BoundingBox returns the rectangle the area covers.
func (a *NoteArea) BoundingBox() BoundingBox {
	return a.box
}

// IsActive reports whether anyone is in the area.
func (a *NoteArea) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.occupants) > 0
}

// Occupants returns the ids of the players in the area, in arrival order.
func (a *NoteArea) Occupants() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.occupantIDs()
}

// Notes returns the current collection, or nil after a reset.
func (a *NoteArea) Notes() *notes.Collection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.notes
}

// Snapshot returns the area state as broadcast to participants.
func (a *NoteArea) Snapshot() area.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

// Add puts a player in the area and broadcasts the player's new location
// followed by a snapshot. Adding a player who is already present is a no-op.
func (a *NoteArea) Add(ctx context.Context, p *Player) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.indexOf(p.ID) >= 0 {
		return nil
	}

	a.occupants = append(a.occupants, p)
	p.Location.InteractableID = a.id
	if a.notes == nil {
		a.notes = notes.Normalize(notes.Absent())
	}

	if err := a.emitter.Emit(ctx, area.PlayerMoved{PlayerID: p.ID, Location: p.Location}); err != nil {
		return fmt.Errorf("failed to announce player %s entering %s: %w", p.ID, a.id, err)
	}
	return a.emitSnapshot(ctx)
}

// Remove takes a player out of the area and broadcasts the player's new
// location followed by a snapshot. When the last occupant leaves, the notes
// are reset. Removing a player who is not present is a no-op.
func (a *NoteArea) Remove(ctx context.Context, p *Player) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(p.ID)
	if i < 0 {
		return nil
	}

	a.occupants = append(a.occupants[:i:i], a.occupants[i+1:]...)
	p.Location.InteractableID = ""
	if len(a.occupants) == 0 {
		a.notes = nil
	}

	if err := a.emitter.Emit(ctx, area.PlayerMoved{PlayerID: p.ID, Location: p.Location}); err != nil {
		return fmt.Errorf("failed to announce player %s leaving %s: %w", p.ID, a.id, err)
	}
	return a.emitSnapshot(ctx)
}

// HandleCommand applies a participant command. The only command is
// NoteTakingAreaUpdate, which replaces the notes wholesale and broadcasts a
// snapshot. If the broadcast fails the previous notes are restored.
func (a *NoteArea) HandleCommand(ctx context.Context, cmd area.Command) error {
	if cmd.Type != area.CommandNoteTakingAreaUpdate {
		return fmt.Errorf("%w: %q", area.ErrUnknownCommand, cmd.Type)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.occupants) == 0 {
		return fmt.Errorf("%w: %s", area.ErrAreaInactive, a.id)
	}

	previous := a.notes
	a.notes = notes.Normalize(cmd.Notes)

	if err := a.emitSnapshot(ctx); err != nil {
		a.notes = previous
		return err
	}
	return nil
}

// emitSnapshot broadcasts the current state. Caller holds a.mu.
func (a *NoteArea) emitSnapshot(ctx context.Context) error {
	if err := a.emitter.Emit(ctx, area.AreaUpdated{Snapshot: a.snapshot()}); err != nil {
		return fmt.Errorf("failed to broadcast snapshot of %s: %w", a.id, err)
	}
	return nil
}

func (a *NoteArea) snapshot() area.Snapshot {
	return area.NewSnapshot(a.id, a.occupantIDs(), a.notes)
}

func (a *NoteArea) occupantIDs() []string {
	ids := make([]string, len(a.occupants))
	for i, p := range a.occupants {
		ids[i] = p.ID
	}
	return ids
}

func (a *NoteArea) indexOf(playerID string) int {
	for i, p := range a.occupants {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}
