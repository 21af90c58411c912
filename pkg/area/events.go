package area

import (
	"encoding/json"
	"fmt"
)

// EventName is the closed set of event names sent to participants.
type EventName string

const (
	// EventInteractableUpdate carries a fresh area Snapshot.
	EventInteractableUpdate EventName = "interactableUpdate"

	// EventPlayerMoved carries a player's new location.
	EventPlayerMoved EventName = "playerMoved"
)

// Event is an authority-to-participant notification. The set of
// implementations is closed: AreaUpdated and PlayerMoved.
type Event interface {
	Name() EventName
	isEvent()
}

// AreaUpdated announces a new snapshot of an area.
type AreaUpdated struct {
	Snapshot Snapshot
}

func (AreaUpdated) Name() EventName { return EventInteractableUpdate }
func (AreaUpdated) isEvent()        {}

// PlayerMoved announces that a player entered or left an area.
type PlayerMoved struct {
	PlayerID string   `json:"id"`
	Location Location `json:"location"`
}

func (PlayerMoved) Name() EventName { return EventPlayerMoved }
func (PlayerMoved) isEvent()        {}

// envelope is the JSON shape of every event on the wire.
type envelope struct {
	Name    EventName       `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEvent marshals an event into its {name, payload} envelope.
func EncodeEvent(e Event) ([]byte, error) {
	var payload any
	switch ev := e.(type) {
	case AreaUpdated:
		payload = ev.Snapshot
	case PlayerMoved:
		payload = ev
	default:
		return nil, fmt.Errorf("unsupported event type %T", e)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Name(), err)
	}

	data, err := json.Marshal(envelope{Name: e.Name(), Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return data, nil
}

// DecodeEvent parses an event envelope.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	switch env.Name {
	case EventInteractableUpdate:
		var snap Snapshot
		if err := json.Unmarshal(env.Payload, &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		if snap.Occupants == nil {
			snap.Occupants = []string{}
		}
		return AreaUpdated{Snapshot: snap}, nil
	case EventPlayerMoved:
		var moved PlayerMoved
		if err := json.Unmarshal(env.Payload, &moved); err != nil {
			return nil, fmt.Errorf("failed to unmarshal player movement: %w", err)
		}
		return moved, nil
	default:
		return nil, fmt.Errorf("unknown event name %q", env.Name)
	}
}
