package sacn

import "errors"

// Sentinel errors for sACN packet parsing and receiver operations.
// Use errors.Is() to check for these.
var (
	// ErrShortPacket indicates a datagram smaller than the E1.31 header.
	ErrShortPacket = errors.New("packet too short")

	// ErrNotE131 indicates a datagram that is not an E1.31 data packet.
	ErrNotE131 = errors.New("not an E1.31 packet")

	// ErrBadStartCode indicates a DMX frame with a non-zero start code.
	ErrBadStartCode = errors.New("unsupported DMX start code")

	// ErrNoUniverses is returned when Start is called with nothing to listen for.
	ErrNoUniverses = errors.New("no universes to listen for")

	// ErrAlreadyStarted is returned when Start is called on a running receiver.
	ErrAlreadyStarted = errors.New("receiver already started")
)
