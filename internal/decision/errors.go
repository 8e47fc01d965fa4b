package decision

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition indicates an attempted status change that the
// lifecycle forbids. It is never retried silently: at the call sites it
// means either a caller bug or a lost-update race, both worth surfacing.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotFound indicates no record exists for the identity key.
var ErrNotFound = errors.New("decision record not found")

func invalidTransition(key string, from Status, action string) error {
	return fmt.Errorf("%w: cannot %s %q in status %s", ErrInvalidTransition, action, key, from)
}
