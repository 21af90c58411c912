// Package resolver finds a note inside a collection from what a user typed:
// an exact id, an id prefix, or a title.
package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/jotter/pkg/notes"
)

// MinPrefixLength is the minimum length accepted for id prefixes.
const MinPrefixLength = 4

// ResolveNote returns the index of the note ref names.
//
// ref is tried, in order, as:
//  1. an exact note id
//  2. a 1-based tab number ("#2")
//  3. an exact title (case-insensitive)
//  4. an id prefix of at least MinPrefixLength characters
//
// The first form that matches exactly one note wins.
func ResolveNote(c *notes.Collection, ref string) (int, error) {
	if ref == "" {
		return -1, &NotFoundError{Ref: ref}
	}

	if i := c.Index(ref); i >= 0 {
		return i, nil
	}

	if strings.HasPrefix(ref, "#") {
		n, err := strconv.Atoi(ref[1:])
		if err != nil || n < 1 || n > c.Len() {
			return -1, &NotFoundError{Ref: ref}
		}
		return n - 1, nil
	}

	var byTitle []int
	for i, n := range c.Notes() {
		if strings.EqualFold(n.Title, ref) {
			byTitle = append(byTitle, i)
		}
	}
	switch len(byTitle) {
	case 1:
		return byTitle[0], nil
	case 0:
	default:
		return -1, ambiguous(c, ref, byTitle)
	}

	if len(ref) < MinPrefixLength {
		return -1, fmt.Errorf("id prefix must be at least %d characters (got %d)", MinPrefixLength, len(ref))
	}

	var byPrefix []int
	for i, n := range c.Notes() {
		if strings.HasPrefix(n.ID, ref) {
			byPrefix = append(byPrefix, i)
		}
	}
	switch len(byPrefix) {
	case 0:
		return -1, &NotFoundError{Ref: ref}
	case 1:
		return byPrefix[0], nil
	default:
		return -1, ambiguous(c, ref, byPrefix)
	}
}

func ambiguous(c *notes.Collection, ref string, indexes []int) *AmbiguousError {
	matches := make([]string, 0, len(indexes))
	for _, i := range indexes {
		n := c.At(i)
		matches = append(matches, fmt.Sprintf("%s (%s)", n.ID, n.Title))
	}
	return &AmbiguousError{Ref: ref, Matches: matches}
}

// NotFoundError indicates no note matched the reference.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no notes found matching '%s'", e.Ref)
}

// AmbiguousError indicates multiple notes matched the reference.
type AmbiguousError struct {
	Ref     string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous note reference '%s' matches %d notes", e.Ref, len(e.Matches))
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous
// references. Lists all matches (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	msg := fmt.Sprintf("Error: ambiguous note reference '%s' matches %d notes:\n", err.Ref, len(err.Matches))

	displayCount := min(len(err.Matches), 10)
	for i := 0; i < displayCount; i++ {
		msg += fmt.Sprintf("  %s\n", err.Matches[i])
	}

	if len(err.Matches) > 10 {
		msg += fmt.Sprintf("  ...and %d more\n", len(err.Matches)-10)
	}

	msg += "\nUse the note id, or #N for the Nth tab."
	return msg
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
