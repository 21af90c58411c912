package area

import (
	"fmt"

	"github.com/dyluth/jotter/pkg/notes"
)

// TypeNoteTakingArea is the snapshot type of every note-taking area.
const TypeNoteTakingArea = "NoteTakingArea"

// FriendlyName is the label participants see for a note-taking area.
const FriendlyName = "Notes"

// Snapshot is the full state of one area as broadcast to its participants.
type Snapshot struct {
	ID        string        `json:"id"`             // Area id from the town map
	Type      string        `json:"type"`           // Always TypeNoteTakingArea
	Occupants []string      `json:"occupants"`      // Player ids in arrival order
	Notes     notes.Payload `json:"notes,omitzero"` // Omitted once the area has been reset
}

// NewSnapshot returns a snapshot of a note-taking area. A nil collection
// produces a snapshot without notes.
func NewSnapshot(id string, occupants []string, c *notes.Collection) Snapshot {
	occ := make([]string, len(occupants))
	copy(occ, occupants)
	return Snapshot{
		ID:        id,
		Type:      TypeNoteTakingArea,
		Occupants: occ,
		Notes:     notes.NotesPayload(c),
	}
}

// CommandType identifies a command sent to the authority.
type CommandType string

const (
	// CommandNoteTakingAreaUpdate replaces an area's notes wholesale.
	CommandNoteTakingAreaUpdate CommandType = "NoteTakingAreaUpdate"
)

// Command is a participant's request to change an area.
type Command struct {
	Type  CommandType   `json:"type"`
	Notes notes.Payload `json:"notes"`
}

// NewUpdateCommand wraps a collection in a NoteTakingAreaUpdate command.
func NewUpdateCommand(c *notes.Collection) Command {
	return Command{Type: CommandNoteTakingAreaUpdate, Notes: notes.NotesPayload(c)}
}

// Location is where a player stands in the town. InteractableID names the
// area the player is currently inside, if any.
type Location struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Rotation       string  `json:"rotation,omitempty"`
	Moving         bool    `json:"moving"`
	InteractableID string  `json:"interactableID,omitempty"`
}

// RequestKind identifies what a participant asks of the authority.
type RequestKind string

const (
	RequestCommand RequestKind = "command"
	RequestEnter   RequestKind = "enter"
	RequestExit    RequestKind = "exit"
)

// Request is one message on the town request list.
type Request struct {
	Kind     RequestKind `json:"kind"`
	AreaID   string      `json:"area_id"`
	PlayerID string      `json:"player_id,omitempty"`
	Command  *Command    `json:"command,omitempty"`
}

// Validate checks that the request carries what its kind needs.
func (r *Request) Validate() error {
	if r.AreaID == "" {
		return fmt.Errorf("area_id is required")
	}

	switch r.Kind {
	case RequestCommand:
		if r.Command == nil {
			return fmt.Errorf("command request for area %q has no command", r.AreaID)
		}
	case RequestEnter, RequestExit:
		if r.PlayerID == "" {
			return fmt.Errorf("%s request for area %q has no player_id", r.Kind, r.AreaID)
		}
	default:
		return fmt.Errorf("invalid request kind: %q", r.Kind)
	}

	return nil
}
