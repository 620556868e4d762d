package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrForbidden = errors.New("forbidden")

	// Post errors
	ErrPostNotFound = errors.New("post not found")

	// Lifecycle errors
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNumberingConflict  = errors.New("numbering conflict")
	ErrConcurrentModified = errors.New("post modified concurrently")

	// Validation errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidCursor = errors.New("invalid cursor")

	// Infra errors
	ErrStoreUnavailable = errors.New("store unavailable")
)
