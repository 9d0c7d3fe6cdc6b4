package persistence

import "errors"

var (
	// ErrNotFound is returned when no wipe or rule set matches, including on
	// an empty table.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConflict is returned when a wipe or rule set id is already stored.
	ErrConflict = errors.New("persistence: conflict")
	// ErrConstraintViolation is returned for a record missing its id, time or
	// document.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
