package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key
	// already exists. Source tables are append-only.
	ErrDuplicateKey = errors.New("duplicate key: source tables are append-only")

	// ErrInvalidInput is returned when a record is nil or lacks its key.
	ErrInvalidInput = errors.New("invalid input")
)
