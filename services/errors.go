package services

import "errors"

// Sentinel errors returned by the service layer. Controllers translate
// them to HTTP status codes; everything else is treated as internal.
var (
	// ErrInvalidInput marks missing or malformed required fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an absent entity. Ownership violations are
	// reported with this same error so callers cannot probe for the
	// existence of other users' recipes.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a uniqueness violation or a delete blocked by an
	// existing reference.
	ErrConflict = errors.New("conflict")
)
