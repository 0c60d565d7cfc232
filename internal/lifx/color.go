package lifx

import "math"

// Colour scaling constants.
const (
	// maxUint16 is the full-scale value for HSBK fields.
	maxUint16 = 65535.0

	// hueDegrees is the hue wheel span in degrees.
	hueDegrees = 360.0
)

// Kelvin range accepted by LIFX bulbs.
const (
	// MinKelvin is the warmest supported colour temperature.
	MinKelvin uint16 = 1500

	// MaxKelvin is the coolest supported colour temperature.
	MaxKelvin uint16 = 9000

	// DefaultKelvin is the neutral white used when a mapping does not
	// specify a colour temperature.
	DefaultKelvin uint16 = 3500
)

// HSBK is a LIFX colour value. All fields are full-scale uint16 except
// Kelvin, which is an absolute colour temperature.
type HSBK struct {
	Hue        uint16
	Saturation uint16
	Brightness uint16
	Kelvin     uint16
}

// RGBToHSBK converts normalised RGB (each component 0.0-1.0) to a LIFX
// HSBK value.
//
// Saturation and brightness follow the standard HSV model: brightness
// is the maximum component, saturation the relative spread. Kelvin is
// carried through unchanged; it only matters when saturation is zero.
//
// Parameters:
//   - r, g, b: Colour components, clamped to [0, 1]
//   - kelvin: Colour temperature for desaturated colours
//
// Returns:
//   - HSBK: Wire-scaled colour value
func RGBToHSBK(r, g, b float64, kelvin uint16) HSBK {
	r = clampUnit(r)
	g = clampUnit(g)
	b = clampUnit(b)

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	var hue float64
	switch {
	case delta == 0:
		hue = 0
	case maxC == r:
		hue = math.Mod((g-b)/delta, 6)
	case maxC == g:
		hue = (b-r)/delta + 2
	default:
		hue = (r-g)/delta + 4
	}
	hue *= 60
	if hue < 0 {
		hue += hueDegrees
	}

	var sat float64
	if maxC > 0 {
		sat = delta / maxC
	}

	return HSBK{
		Hue:        scaleUnit(hue / hueDegrees),
		Saturation: scaleUnit(sat),
		Brightness: scaleUnit(maxC),
		Kelvin:     clampKelvin(kelvin),
	}
}

// RGB returns the colour as normalised RGB components (0.0-1.0).
// Used for reporting device state; Kelvin is ignored.
func (c HSBK) RGB() (r, g, b float64) {
	h := float64(c.Hue) / maxUint16 * hueDegrees
	s := float64(c.Saturation) / maxUint16
	v := float64(c.Brightness) / maxUint16

	chroma := v * s
	hPrime := h / 60
	x := chroma * (1 - math.Abs(math.Mod(hPrime, 2)-1))

	switch {
	case hPrime < 1:
		r, g, b = chroma, x, 0
	case hPrime < 2:
		r, g, b = x, chroma, 0
	case hPrime < 3:
		r, g, b = 0, chroma, x
	case hPrime < 4:
		r, g, b = 0, x, chroma
	case hPrime < 5:
		r, g, b = x, 0, chroma
	default:
		r, g, b = chroma, 0, x
	}

	m := v - chroma
	return r + m, g + m, b + m
}

// scaleUnit converts a [0, 1] float to a full-scale uint16.
func scaleUnit(v float64) uint16 {
	return uint16(math.Round(clampUnit(v) * maxUint16)) //nolint:gosec // clamped to [0, 65535]
}

// clampUnit clamps v to [0, 1].
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampKelvin clamps a colour temperature to the supported range,
// substituting DefaultKelvin for zero.
func clampKelvin(k uint16) uint16 {
	if k == 0 {
		return DefaultKelvin
	}
	if k < MinKelvin {
		return MinKelvin
	}
	if k > MaxKelvin {
		return MaxKelvin
	}
	return k
}
