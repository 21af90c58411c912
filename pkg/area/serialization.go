package area

import (
	"encoding/json"
	"fmt"

	"github.com/dyluth/jotter/pkg/notes"
)

// Serialization helpers for converting between snapshots and Redis hashes.
//
// Occupants and notes are JSON-encoded into single hash fields. The notes
// field is left out entirely for an area without notes, so a reader can tell
// "reset" apart from "empty collection".

// SnapshotToHash converts a Snapshot to a Redis hash.
func SnapshotToHash(s *Snapshot) (map[string]interface{}, error) {
	occupants := s.Occupants
	if occupants == nil {
		occupants = []string{}
	}
	occupantsJSON, err := json.Marshal(occupants)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal occupants: %w", err)
	}

	hash := map[string]interface{}{
		"id":        s.ID,
		"type":      s.Type,
		"occupants": string(occupantsJSON),
	}

	if !s.Notes.IsZero() {
		notesJSON, err := json.Marshal(s.Notes)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notes: %w", err)
		}
		hash["notes"] = string(notesJSON)
	}

	return hash, nil
}

// HashToSnapshot converts a Redis hash back to a Snapshot.
func HashToSnapshot(hash map[string]string) (*Snapshot, error) {
	var occupants []string
	if occupantsJSON := hash["occupants"]; occupantsJSON != "" {
		if err := json.Unmarshal([]byte(occupantsJSON), &occupants); err != nil {
			return nil, fmt.Errorf("failed to unmarshal occupants: %w", err)
		}
	}
	if occupants == nil {
		occupants = []string{}
	}

	payload := notes.Absent()
	if notesJSON, ok := hash["notes"]; ok {
		if err := json.Unmarshal([]byte(notesJSON), &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notes: %w", err)
		}
	}

	return &Snapshot{
		ID:        hash["id"],
		Type:      hash["type"],
		Occupants: occupants,
		Notes:     payload,
	}, nil
}
