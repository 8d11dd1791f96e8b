package core

import "errors"

// Error taxonomy shared by storage, services and the HTTP layer.
var (
	// ErrValidation marks malformed input rejected before it reaches storage.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a uniqueness constraint violation.
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks a missing row owned by the caller.
	ErrNotFound = errors.New("not found")
)
