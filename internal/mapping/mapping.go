package mapping

import (
	"encoding/json"
	"fmt"
	"time"
)

// DMX addressing limits.
const (
	// MinUniverse and MaxUniverse bound valid E1.31 universe numbers.
	MinUniverse = 1
	MaxUniverse = 63999

	// MaxChannel is the last DMX slot in a universe.
	MaxChannel = 512
)

// Kelvin bounds for mapping colour temperature.
const (
	minKelvin = 1500
	maxKelvin = 9000

	// DefaultKelvin is used when a mapping does not specify one.
	DefaultKelvin = 3500
)

// Mode identifies how a block of DMX channels is decoded into a colour.
type Mode string

// Supported channel modes.
const (
	// ModeRGB8 is 3 channels: red, green, blue.
	ModeRGB8 Mode = "rgb8"

	// ModeRGB16 is 6 channels: red, green, blue as 16-bit pairs (MSB first).
	ModeRGB16 Mode = "rgb16"

	// ModeRGBW8 is 4 channels: red, green, blue, white.
	ModeRGBW8 Mode = "rgbw8"

	// ModeRGBW16 is 8 channels: red, green, blue, white as 16-bit pairs.
	ModeRGBW16 Mode = "rgbw16"

	// ModeHSBK8 is 4 channels: hue, saturation, brightness, kelvin.
	ModeHSBK8 Mode = "hsbk8"

	// ModeHSBK16 is 8 channels: hue, saturation, brightness, kelvin as
	// 16-bit pairs.
	ModeHSBK16 Mode = "hsbk16"
)

// modeChannels maps each mode to its DMX footprint.
var modeChannels = map[Mode]int{
	ModeRGB8:   3,
	ModeRGB16:  6,
	ModeRGBW8:  4,
	ModeRGBW16: 8,
	ModeHSBK8:  4,
	ModeHSBK16: 8,
}

// Channels returns the number of DMX channels the mode occupies.
func (m Mode) Channels() int {
	return modeChannels[m]
}

// Valid reports whether the mode is one of the supported values.
func (m Mode) Valid() bool {
	_, ok := modeChannels[m]
	return ok
}

// Is16Bit reports whether the mode combines channel pairs into 16-bit
// values.
func (m Mode) Is16Bit() bool {
	switch m {
	case ModeRGB16, ModeRGBW16, ModeHSBK16:
		return true
	default:
		return false
	}
}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// Mapping binds a block of DMX channels in one universe to a LIFX light.
type Mapping struct {
	// ID is the mapping's UUID.
	ID string `json:"id"`

	// LightID is the target light's serial.
	LightID string `json:"light_id"`

	// LightIP is the light's address at the time the mapping was made.
	// Informational; the live registry address wins at dispatch time.
	LightIP string `json:"light_ip"`

	// LightLabel is the light's name at the time the mapping was made.
	LightLabel string `json:"light_label"`

	// Universe is the E1.31 universe carrying this light's channels.
	Universe uint16 `json:"universe"`

	// StartChannel is the first DMX channel (1-based).
	StartChannel int `json:"start_channel"`

	// Mode selects the channel decoding.
	Mode Mode `json:"mode"`

	// Enabled gates dispatch; disabled mappings are kept but ignored.
	Enabled bool `json:"enabled"`

	// BrightnessCap scales the decoded brightness (0.0-1.0).
	BrightnessCap float64 `json:"brightness_cap"`

	// Kelvin is the colour temperature for RGB modes, where the DMX
	// data carries no temperature of its own.
	Kelvin int `json:"kelvin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EndChannel returns the last DMX channel the mapping occupies.
func (m *Mapping) EndChannel() int {
	return m.StartChannel + m.Mode.Channels() - 1
}

// Validate checks the mapping for structural errors.
//
// Returns:
//   - error: ErrInvalid wrapped with a description, or nil if valid
func (m *Mapping) Validate() error {
	if m.LightID == "" {
		return fmt.Errorf("%w: light_id is required", ErrInvalid)
	}
	if !m.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidMode, m.Mode)
	}
	if m.Universe < MinUniverse || m.Universe > MaxUniverse {
		return fmt.Errorf("%w: universe %d outside %d-%d", ErrInvalid, m.Universe, MinUniverse, MaxUniverse)
	}
	if m.StartChannel < 1 || m.StartChannel > MaxChannel {
		return fmt.Errorf("%w: start_channel %d outside 1-%d", ErrInvalid, m.StartChannel, MaxChannel)
	}
	if m.EndChannel() > MaxChannel {
		return fmt.Errorf("%w: mode %s needs %d channels, %d-%d runs past %d",
			ErrInvalid, m.Mode, m.Mode.Channels(), m.StartChannel, m.EndChannel(), MaxChannel)
	}
	if m.BrightnessCap < 0 || m.BrightnessCap > 1 {
		return fmt.Errorf("%w: brightness_cap %v outside 0.0-1.0", ErrInvalid, m.BrightnessCap)
	}
	if m.Kelvin != 0 && (m.Kelvin < minKelvin || m.Kelvin > maxKelvin) {
		return fmt.Errorf("%w: kelvin %d outside %d-%d", ErrInvalid, m.Kelvin, minKelvin, maxKelvin)
	}
	return nil
}

// ApplyDefaults fills zero-valued optional fields.
//
// BrightnessCap is not defaulted here: zero is a legitimate cap (the
// light stays dark), so the absent-key default lives in UnmarshalJSON
// where absence can still be told apart from an explicit 0.
func (m *Mapping) ApplyDefaults() {
	if m.Mode == "" {
		m.Mode = ModeRGB8
	}
	if m.Kelvin == 0 {
		m.Kelvin = DefaultKelvin
	}
}

// UnmarshalJSON decodes a mapping, defaulting brightness_cap to 1.0
// when the key is absent from the payload. An explicit 0 survives.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	type alias Mapping
	aux := struct {
		BrightnessCap *float64 `json:"brightness_cap"`
		*alias
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.BrightnessCap == nil {
		m.BrightnessCap = 1.0
	} else {
		m.BrightnessCap = *aux.BrightnessCap
	}
	return nil
}

// Slice extracts this mapping's channels from a universe's slot data.
// Returns false if the frame is too short to cover the mapping.
func (m *Mapping) Slice(slots []byte) ([]byte, bool) {
	start := m.StartChannel - 1
	end := start + m.Mode.Channels()
	if end > len(slots) {
		return nil, false
	}
	return slots[start:end], true
}
