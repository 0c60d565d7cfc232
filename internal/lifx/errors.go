package lifx

import "errors"

// Sentinel errors for LIFX client operations.
// Use errors.Is() to check for these.
var (
	// ErrClosed is returned when an operation is attempted on a closed client.
	ErrClosed = errors.New("lifx client closed")

	// ErrShortPacket indicates a datagram smaller than its declared layout.
	ErrShortPacket = errors.New("packet too short")

	// ErrInvalidPacket indicates a datagram that is not a LIFX protocol packet.
	ErrInvalidPacket = errors.New("invalid packet")

	// ErrInvalidDeviceID indicates a malformed device serial string.
	ErrInvalidDeviceID = errors.New("invalid device ID")

	// ErrDeviceNotFound is returned when a device ID is not in the registry.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrProbeTimeout is returned when a probed address does not answer.
	ErrProbeTimeout = errors.New("probe timed out")

	// ErrNotALight is returned when a probed device is a Switch relay.
	ErrNotALight = errors.New("device is not a light")
)
