package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientStock indicates the available count could not cover a
	// reservation request.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict indicates a guarded update found the record in a state the
	// operation cannot be applied to.
	ErrConflict = errors.New("conflicting state")
)
