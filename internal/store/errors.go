package store

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("duplicate")
	// ErrInsufficientStock is returned when a stock adjustment would go below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)
