package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when no edge exists for the trigger
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every guard for the trigger failed
	ErrGuardFailed = errors.New("guard condition failed")
)
