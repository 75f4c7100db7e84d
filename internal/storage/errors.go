package storage

import "errors"

// Errors shared by every store backend. Callers match them with errors.Is.
var (
	// ErrNotFound is returned when a run, record or transaction is absent.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a key (transaction seq, run ID, or a
	// run's records or cells) was already written. Stores never overwrite.
	ErrDuplicateKey = errors.New("duplicate key: stores are append-only")

	// ErrInvalidInput is returned for empty keys, nil records and records
	// that reference an unknown run.
	ErrInvalidInput = errors.New("invalid input")
)
