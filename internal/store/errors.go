package store

import "errors"

var (
	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPetitionMissing is returned when a signature references a
	// petition id with no row behind it.
	ErrPetitionMissing = errors.New("petition does not exist")
)
