package dispatch

import (
	"fmt"

	"github.com/nerrad567/luxbridge/internal/lifx"
	"github.com/nerrad567/luxbridge/internal/mapping"
)

// whiteBlend is how strongly the white channel of RGBW modes lifts the
// colour channels. LIFX bulbs have no separate white emitter to
// address, so white is folded into the RGB components before the HSBK
// conversion.
const whiteBlend = 0.3

// HSBK decode constants. The DMX universe carries no absolute colour
// temperature, so the kelvin channel spans a fixed range.
const (
	hsbkKelvinMin = 2500
	hsbkKelvinMax = 9000
)

// DecodeColor converts a mapping's channel block into a LIFX colour.
//
// The slice must be exactly the mapping's footprint (use
// Mapping.Slice). Brightness is scaled by the mapping's cap after
// decoding; RGB modes take their colour temperature from the mapping.
//
// Parameters:
//   - m: The mapping describing mode, cap, and kelvin
//   - slice: The mapping's channels from the DMX frame
//
// Returns:
//   - lifx.HSBK: Wire-ready colour
//   - error: If the slice length does not match the mode footprint
func DecodeColor(m *mapping.Mapping, slice []byte) (lifx.HSBK, error) {
	if len(slice) != m.Mode.Channels() {
		return lifx.HSBK{}, fmt.Errorf("%w: %d channels for mode %s (want %d)",
			ErrBadSlice, len(slice), m.Mode, m.Mode.Channels())
	}

	kelvin := uint16(m.Kelvin) //nolint:gosec // validated to 1500-9000

	switch m.Mode {
	case mapping.ModeRGB8:
		return scaleRGB(unit8(slice[0]), unit8(slice[1]), unit8(slice[2]), m.BrightnessCap, kelvin), nil

	case mapping.ModeRGB16:
		return scaleRGB(
			unit16(combine16(slice[0], slice[1])),
			unit16(combine16(slice[2], slice[3])),
			unit16(combine16(slice[4], slice[5])),
			m.BrightnessCap, kelvin,
		), nil

	case mapping.ModeRGBW8:
		r, g, b := blendWhite(unit8(slice[0]), unit8(slice[1]), unit8(slice[2]), unit8(slice[3]))
		return scaleRGB(r, g, b, m.BrightnessCap, kelvin), nil

	case mapping.ModeRGBW16:
		r, g, b := blendWhite(
			unit16(combine16(slice[0], slice[1])),
			unit16(combine16(slice[2], slice[3])),
			unit16(combine16(slice[4], slice[5])),
			unit16(combine16(slice[6], slice[7])),
		)
		return scaleRGB(r, g, b, m.BrightnessCap, kelvin), nil

	case mapping.ModeHSBK8:
		return decodeHSBK(
			unit8(slice[0]), unit8(slice[1]), unit8(slice[2]), unit8(slice[3]),
			m.BrightnessCap,
		), nil

	case mapping.ModeHSBK16:
		return decodeHSBK(
			unit16(combine16(slice[0], slice[1])),
			unit16(combine16(slice[2], slice[3])),
			unit16(combine16(slice[4], slice[5])),
			unit16(combine16(slice[6], slice[7])),
			m.BrightnessCap,
		), nil

	default:
		return lifx.HSBK{}, fmt.Errorf("%w: mode %q", ErrBadSlice, m.Mode)
	}
}

// combine16 joins a 16-bit channel pair, most significant byte first.
func combine16(msb, lsb byte) uint16 {
	return uint16(msb)<<8 | uint16(lsb)
}

// unit8 normalises an 8-bit channel to [0, 1].
func unit8(v byte) float64 {
	return float64(v) / 255
}

// unit16 normalises a combined 16-bit channel to [0, 1].
func unit16(v uint16) float64 {
	return float64(v) / 65535
}

// blendWhite folds a white channel into the colour components.
func blendWhite(r, g, b, w float64) (float64, float64, float64) {
	lift := w * whiteBlend
	return clamp(r + lift), clamp(g + lift), clamp(b + lift)
}

// scaleRGB applies the brightness cap and converts to HSBK.
func scaleRGB(r, g, b, limit float64, kelvin uint16) lifx.HSBK {
	c := lifx.RGBToHSBK(r, g, b, kelvin)
	c.Brightness = scaleBrightness(c.Brightness, limit)
	return c
}

// decodeHSBK maps normalised hue/sat/bri/kelvin channels to wire values.
//
// The brightness channel enters twice: once as the wire value and once
// folded into the cap, so output tracks the square of the channel. This
// tames the low end of cheap desk consoles.
func decodeHSBK(h, s, bri, k, limit float64) lifx.HSBK {
	kelvin := hsbkKelvinMin + k*(hsbkKelvinMax-hsbkKelvinMin)
	return lifx.HSBK{
		Hue:        full16(h),
		Saturation: full16(s),
		Brightness: scaleBrightness(full16(bri), limit*bri),
		Kelvin:     uint16(kelvin), //nolint:gosec // bounded by construction
	}
}

// full16 scales a [0, 1] value to the full uint16 range.
func full16(v float64) uint16 {
	return uint16(clamp(v)*65535 + 0.5) //nolint:gosec // clamped to [0, 65535]
}

// scaleBrightness applies a brightness limit, truncating toward zero so
// a capped channel never rounds up past its ceiling.
func scaleBrightness(v uint16, limit float64) uint16 {
	if limit >= 1 {
		return v
	}
	if limit <= 0 {
		return 0
	}
	return uint16(float64(v) * limit) //nolint:gosec // limit in (0, 1)
}

// clamp bounds v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
