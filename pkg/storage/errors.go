package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a tenant does not exist.
	ErrNotFound = errors.New("tenant not found")

	// ErrConflict is returned when a tenant with the given ID already exists.
	ErrConflict = errors.New("tenant already exists")
)
