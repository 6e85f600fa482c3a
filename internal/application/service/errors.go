package service

import "errors"

var (
	// ErrValidation is returned when input is malformed or inconsistent
	ErrValidation = errors.New("validation failed")

	// ErrForbidden is returned when the actor may not perform a type-level action
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("already exists")
)
