package mapping

import "errors"

// Sentinel errors for mapping operations.
// Use errors.Is() to check for these.
var (
	// ErrNotFound is returned when a mapping ID does not exist.
	ErrNotFound = errors.New("mapping not found")

	// ErrInvalid indicates a mapping that fails validation.
	ErrInvalid = errors.New("invalid mapping")

	// ErrInvalidMode indicates an unknown channel mode string.
	ErrInvalidMode = errors.New("invalid channel mode")

	// ErrOverlap indicates a mapping whose channels collide with an
	// existing mapping for the same light in the same universe.
	ErrOverlap = errors.New("mapping overlaps existing mapping")
)
