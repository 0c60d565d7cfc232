package lifx

import (
	"encoding/binary"
	"fmt"
)

// LIFX LAN protocol message types.
const (
	// MsgGetService is the discovery request, broadcast to all devices.
	MsgGetService uint16 = 2

	// MsgStateService is the discovery response carrying service and port.
	MsgStateService uint16 = 3

	// MsgGetPower requests the device power level.
	MsgGetPower uint16 = 20

	// MsgSetPower sets the device power level (0 or 65535).
	MsgSetPower uint16 = 21

	// MsgStatePower is the power level response.
	MsgStatePower uint16 = 22

	// MsgGetLabel requests the device label.
	MsgGetLabel uint16 = 23

	// MsgStateLabel is the label response (32 bytes, null padded).
	MsgStateLabel uint16 = 25

	// MsgGetVersion requests vendor/product/version identifiers.
	MsgGetVersion uint16 = 32

	// MsgStateVersion is the version response.
	MsgStateVersion uint16 = 33

	// MsgGetColor requests the current light state.
	MsgGetColor uint16 = 101

	// MsgSetColor sets the light colour with a transition duration.
	MsgSetColor uint16 = 102

	// MsgStateLight is the light state response (colour, power, label).
	MsgStateLight uint16 = 107
)

// Wire format constants.
const (
	// headerSize is the fixed LIFX protocol header length in bytes.
	headerSize = 36

	// protocolNumber is the LIFX LAN protocol identifier carried in the
	// low 12 bits of the flags field.
	protocolNumber = 1024

	// DefaultPort is the UDP port LIFX devices listen on.
	DefaultPort = 56700

	// labelSize is the fixed length of device label fields.
	labelSize = 32

	// maxPowerLevel is the wire value for full power.
	maxPowerLevel uint16 = 65535
)

// Flag bit positions within the 16-bit protocol/flags field.
const (
	addressableBit = 12
	taggedBit      = 13
)

// Header represents a decoded LIFX protocol header.
//
// The full 36-byte header spans three wire sections (frame, frame
// address, protocol header); this struct keeps only the fields the
// bridge acts on.
type Header struct {
	// Size is the total packet length including the header.
	Size uint16

	// Tagged is true for broadcast packets addressed to all devices.
	Tagged bool

	// Source identifies the client that sent the request. Devices echo
	// it back so replies can be matched to this process.
	Source uint32

	// Target is the device serial (6 bytes) padded to 8. All zeroes
	// addresses every device.
	Target [8]byte

	// Sequence is the wrap-around message counter echoed in replies.
	Sequence uint8

	// Type is the message type.
	Type uint16
}

// encodeMessage builds a complete LIFX packet: 36-byte header followed
// by the payload.
//
// Wire layout (little-endian):
//
//	Bytes 0-1:   size (header + payload)
//	Bytes 2-3:   origin(2, zero) | tagged(1) | addressable(1) | protocol(12)
//	Bytes 4-7:   source
//	Bytes 8-15:  target serial (6 bytes + 2 zero)
//	Bytes 16-21: reserved
//	Byte  22:    res_required/ack_required flags (always 0; replies are
//	             matched by source, not acknowledgements)
//	Byte  23:    sequence
//	Bytes 24-31: reserved
//	Bytes 32-33: message type
//	Bytes 34-35: reserved
func encodeMessage(msgType uint16, target [8]byte, tagged bool, source uint32, sequence uint8, payload []byte) []byte {
	size := headerSize + len(payload)
	buf := make([]byte, size)

	binary.LittleEndian.PutUint16(buf[0:2], uint16(size)) //nolint:gosec // packet sizes are well under 64 KiB

	flags := uint16(protocolNumber)
	flags |= 1 << addressableBit
	if tagged {
		flags |= 1 << taggedBit
	}
	binary.LittleEndian.PutUint16(buf[2:4], flags)

	binary.LittleEndian.PutUint32(buf[4:8], source)
	copy(buf[8:16], target[:])
	// Bytes 16-21 reserved, byte 22 carries the ack/res flags (zero).
	buf[23] = sequence
	// Bytes 24-31 reserved.
	binary.LittleEndian.PutUint16(buf[32:34], msgType)
	// Bytes 34-35 reserved.

	copy(buf[headerSize:], payload)
	return buf
}

// parseHeader decodes the LIFX header from a received packet and
// returns the payload that follows it.
//
// Parameters:
//   - data: Raw UDP datagram
//
// Returns:
//   - Header: Decoded header fields
//   - []byte: Payload after the header (may be empty)
//   - error: ErrShortPacket or ErrInvalidPacket
func parseHeader(data []byte) (Header, []byte, error) {
	if len(data) < headerSize {
		return Header{}, nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrShortPacket, len(data), headerSize)
	}

	size := binary.LittleEndian.Uint16(data[0:2])
	if int(size) > len(data) {
		return Header{}, nil, fmt.Errorf("%w: declared size %d exceeds datagram length %d", ErrInvalidPacket, size, len(data))
	}

	flags := binary.LittleEndian.Uint16(data[2:4])
	if flags&0x0FFF != protocolNumber {
		return Header{}, nil, fmt.Errorf("%w: protocol %d, want %d", ErrInvalidPacket, flags&0x0FFF, protocolNumber)
	}

	h := Header{
		Size:     size,
		Tagged:   flags&(1<<taggedBit) != 0,
		Source:   binary.LittleEndian.Uint32(data[4:8]),
		Sequence: data[23],
		Type:     binary.LittleEndian.Uint16(data[32:34]),
	}
	copy(h.Target[:], data[8:16])

	return h, data[headerSize:size], nil
}

// encodeSetColor builds the SetColor payload.
//
// Wire layout: reserved(1) + hue(2) + saturation(2) + brightness(2) +
// kelvin(2) + duration_ms(4), little-endian.
func encodeSetColor(color HSBK, durationMs uint32) []byte {
	buf := make([]byte, 13)
	// Byte 0 reserved.
	binary.LittleEndian.PutUint16(buf[1:3], color.Hue)
	binary.LittleEndian.PutUint16(buf[3:5], color.Saturation)
	binary.LittleEndian.PutUint16(buf[5:7], color.Brightness)
	binary.LittleEndian.PutUint16(buf[7:9], color.Kelvin)
	binary.LittleEndian.PutUint32(buf[9:13], durationMs)
	return buf
}

// encodeSetPower builds the SetPower payload: level(2) + duration_ms(4).
func encodeSetPower(on bool, durationMs uint32) []byte {
	buf := make([]byte, 6)
	if on {
		binary.LittleEndian.PutUint16(buf[0:2], maxPowerLevel)
	}
	binary.LittleEndian.PutUint32(buf[2:6], durationMs)
	return buf
}

// parseStateService decodes a StateService payload: service(1) + port(4).
func parseStateService(payload []byte) (service uint8, port uint32, err error) {
	if len(payload) < 5 {
		return 0, 0, fmt.Errorf("%w: StateService payload %d bytes", ErrShortPacket, len(payload))
	}
	return payload[0], binary.LittleEndian.Uint32(payload[1:5]), nil
}

// parseStateLabel decodes a StateLabel payload: 32-byte null-padded string.
func parseStateLabel(payload []byte) (string, error) {
	if len(payload) < labelSize {
		return "", fmt.Errorf("%w: StateLabel payload %d bytes", ErrShortPacket, len(payload))
	}
	return trimLabel(payload[:labelSize]), nil
}

// parseStateVersion decodes a StateVersion payload: vendor(4) + product(4) + version(4).
func parseStateVersion(payload []byte) (vendor, product uint32, err error) {
	if len(payload) < 12 {
		return 0, 0, fmt.Errorf("%w: StateVersion payload %d bytes", ErrShortPacket, len(payload))
	}
	return binary.LittleEndian.Uint32(payload[0:4]), binary.LittleEndian.Uint32(payload[4:8]), nil
}

// parseStatePower decodes a StatePower payload: level(2).
func parseStatePower(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, fmt.Errorf("%w: StatePower payload %d bytes", ErrShortPacket, len(payload))
	}
	return binary.LittleEndian.Uint16(payload[0:2]), nil
}

// LightState is a decoded StateLight report.
type LightState struct {
	Color HSBK
	Power uint16
	Label string
}

// parseStateLight decodes a StateLight payload.
//
// Wire layout: hue(2) + saturation(2) + brightness(2) + kelvin(2) +
// reserved(2) + power(2) + label(32) + reserved(8).
func parseStateLight(payload []byte) (LightState, error) {
	if len(payload) < 44 {
		return LightState{}, fmt.Errorf("%w: StateLight payload %d bytes", ErrShortPacket, len(payload))
	}
	return LightState{
		Color: HSBK{
			Hue:        binary.LittleEndian.Uint16(payload[0:2]),
			Saturation: binary.LittleEndian.Uint16(payload[2:4]),
			Brightness: binary.LittleEndian.Uint16(payload[4:6]),
			Kelvin:     binary.LittleEndian.Uint16(payload[6:8]),
		},
		Power: binary.LittleEndian.Uint16(payload[10:12]),
		Label: trimLabel(payload[12:44]),
	}, nil
}

// trimLabel converts a null-padded label field to a Go string.
func trimLabel(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
