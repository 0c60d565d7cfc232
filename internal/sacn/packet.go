package sacn

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// E1.31 wire format constants.
const (
	// minPacketSize is the smallest well-formed data packet: the
	// 125-byte header plus the DMX start code. Slot data, when
	// present, follows from byte 126.
	minPacketSize = 126

	// preamble is the RLP preamble size field value.
	preamble uint16 = 0x0010

	// maxSlots is the DMX512 slot count limit per universe.
	maxSlots = 512

	// DefaultPort is the E1.31 UDP port.
	DefaultPort = 5568
)

// Field offsets within an E1.31 data packet.
const (
	offPreamble   = 0   // uint16 BE
	offPostamble  = 2   // uint16 BE
	offACNID      = 4   // 12 bytes
	offSourceName = 44  // 64 bytes, null padded
	offPriority   = 108 // uint8
	offSequence   = 111 // uint8
	offOptions    = 112 // uint8
	offUniverse   = 113 // uint16 BE
	offStartCode  = 125 // uint8
	offData       = 126
)

// acnIdentifier is the fixed ACN packet identifier.
var acnIdentifier = []byte("ASC-E1.17\x00\x00\x00")

// Option flag bits in the framing layer options field.
const (
	// optStreamTerminated marks the source's final packet for a universe.
	optStreamTerminated = 1 << 6

	// optPreviewData marks visualiser-only data that must not reach
	// live fixtures.
	optPreviewData = 1 << 7
)

// Frame is a decoded E1.31 data packet.
type Frame struct {
	// Universe is the DMX universe number (1-63999).
	Universe uint16

	// Priority is the source priority (0-200, default 100).
	Priority uint8

	// Sequence is the per-universe sequence number.
	Sequence uint8

	// SourceName is the sender's self-reported name.
	SourceName string

	// Preview is true for visualiser data that must not drive fixtures.
	Preview bool

	// Terminated is true when the source is ending this stream.
	Terminated bool

	// Data holds the DMX slot values (channel N is Data[N-1]).
	Data []byte
}

// ParsePacket decodes an E1.31 data packet.
//
// Validates the root layer (preamble, ACN identifier) and extracts the
// framing and DMP fields the bridge needs. Packets with a non-zero DMX
// start code are rejected: alternate start codes carry non-dimmer data.
//
// Parameters:
//   - data: Raw UDP datagram
//
// Returns:
//   - Frame: Decoded frame with Data aliasing a copy of the slots
//   - error: ErrShortPacket, ErrNotE131, or ErrBadStartCode
func ParsePacket(data []byte) (Frame, error) {
	if len(data) < minPacketSize {
		return Frame{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrShortPacket, len(data), minPacketSize)
	}

	if binary.BigEndian.Uint16(data[offPreamble:]) != preamble {
		return Frame{}, fmt.Errorf("%w: bad preamble", ErrNotE131)
	}
	if binary.BigEndian.Uint16(data[offPostamble:]) != 0 {
		return Frame{}, fmt.Errorf("%w: bad postamble", ErrNotE131)
	}
	if !bytes.Equal(data[offACNID:offACNID+len(acnIdentifier)], acnIdentifier) {
		return Frame{}, fmt.Errorf("%w: bad ACN identifier", ErrNotE131)
	}

	if code := data[offStartCode]; code != 0 {
		return Frame{}, fmt.Errorf("%w: %#02x", ErrBadStartCode, code)
	}

	slots := data[offData:]
	if len(slots) > maxSlots {
		slots = slots[:maxSlots]
	}

	options := data[offOptions]

	f := Frame{
		Universe:   binary.BigEndian.Uint16(data[offUniverse:]),
		Priority:   data[offPriority],
		Sequence:   data[offSequence],
		SourceName: trimNull(data[offSourceName : offSourceName+64]),
		Preview:    options&optPreviewData != 0,
		Terminated: options&optStreamTerminated != 0,
		Data:       make([]byte, len(slots)),
	}
	copy(f.Data, slots)
	return f, nil
}

// MulticastGroup returns the E1.31 multicast address for a universe:
// 239.255.<universe high byte>.<universe low byte>.
func MulticastGroup(universe uint16) string {
	return fmt.Sprintf("239.255.%d.%d", universe>>8, universe&0xFF)
}

// trimNull converts a null-padded field to a Go string.
func trimNull(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
