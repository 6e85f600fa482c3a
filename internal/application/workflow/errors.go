package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requisition does not exist or the
	// actor may not know that it exists
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when the trigger is not legal from the
	// current status for this actor
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrPersistenceFailure is returned when the atomic write unit failed and
	// was rolled back. The caller may retry.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrUnauthenticated is returned for absent or inactive actors. It matches
	// ErrNotFound so that callers cannot discover which ids exist.
	ErrUnauthenticated = fmt.Errorf("%w: unauthenticated actor", ErrNotFound)

	// ErrCorruptState is returned when the stored status is not a workflow
	// state. Retrying cannot succeed.
	ErrCorruptState = fmt.Errorf("%w: stored status is not a workflow state", ErrInvalidTransition)

	// ErrConcurrentUpdate is returned when another transition committed first
	ErrConcurrentUpdate = fmt.Errorf("%w: requisition was modified concurrently", ErrPersistenceFailure)
)

// IsRetryable reports whether err came from a rolled back write unit
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistenceFailure)
}
