package area

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCommand is returned by the authority for a command type it
	// does not handle.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMalformedArea is wrapped by every MalformedAreaError.
	ErrMalformedArea = errors.New("malformed area")

	// ErrAreaInactive is returned for commands sent to an area nobody occupies.
	ErrAreaInactive = errors.New("area is not active")

	// ErrAreaNotFound is returned for requests naming an area the authority
	// does not own.
	ErrAreaNotFound = errors.New("area not found")
)

// MalformedAreaError reports map data that cannot describe a note-taking area.
type MalformedAreaError struct {
	Name   string
	Reason string
}

func (e *MalformedAreaError) Error() string {
	return fmt.Sprintf("malformed note-taking area %s: %s", e.Name, e.Reason)
}

// Is lets errors.Is match ErrMalformedArea.
func (e *MalformedAreaError) Is(target error) bool {
	return target == ErrMalformedArea
}
