// Package apperr defines the sentinel errors shared across lexa layers.
// Wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrPrecondition marks an operation invoked in a state that does not allow it
	// (empty queue, completed session, answering out of turn).
	ErrPrecondition = errors.New("precondition violated")
	// ErrInvalidInput marks caller input rejected before any mutation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLocked is returned when drilling a group that has not been unlocked yet.
	ErrLocked = errors.New("group locked")
)
