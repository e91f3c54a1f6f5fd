// Package backend selects and invokes one of the two configured model
// backends. Selection is by ordinal, never by free text.
package backend

import (
	"errors"
	"fmt"
)

// Selection is the ordinal of a configured backend.
type Selection int

// The two backend slots.
const (
	Primary   Selection = 0
	Secondary Selection = 1
)

// ErrInvalidSelection is returned for any ordinal other than 0 or 1.
var ErrInvalidSelection = errors.New("invalid backend selection")

// ParseSelection validates an ordinal coming from a caller.
func ParseSelection(n int) (Selection, error) {
	s := Selection(n)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSelection, n)
	}
	return s, nil
}

// Valid reports whether s names one of the two slots.
func (s Selection) Valid() bool {
	return s == Primary || s == Secondary
}

// String returns a human-readable label for the selection.
func (s Selection) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("selection(%d)", int(s))
	}
}
