package domain

import "errors"

var (
	// ErrValidation marks requests with missing or malformed fields.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for entities that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks state transitions rejected by the current entity state.
	ErrConflict = errors.New("conflict")
)
