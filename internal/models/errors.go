package models

import "errors"

// Shared error taxonomy for the store-backed services. Callers match with
// errors.Is after the usual %w wrapping.
var (
	// ErrNotFound means a referenced table, customer, staff or settings
	// row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the request payload is malformed (bad quantity,
	// negative price, empty batch, reserved key).
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState means the entity exists but is in the wrong state
	// for the operation, e.g. checking out a free table.
	ErrInvalidState = errors.New("invalid state")

	// ErrTransaction wraps a store-level failure inside a multi-step
	// mutation. The transaction is rolled back before it surfaces.
	ErrTransaction = errors.New("transaction failed")
)
