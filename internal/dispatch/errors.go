package dispatch

import "errors"

// Sentinel errors for dispatch operations.
// Use errors.Is() to check for these.
var (
	// ErrBadSlice indicates a channel block that does not match its mode.
	ErrBadSlice = errors.New("channel block does not match mode")

	// ErrAlreadyRunning is returned when Start is called on a running worker.
	ErrAlreadyRunning = errors.New("worker already running")

	// ErrNoMappings is returned when Start finds no enabled mappings.
	ErrNoMappings = errors.New("no enabled mappings")
)
