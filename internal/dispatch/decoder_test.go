package dispatch

import (
	"errors"
	"testing"

	"github.com/nerrad567/luxbridge/internal/lifx"
	"github.com/nerrad567/luxbridge/internal/mapping"
)

func testMapping(mode mapping.Mode) *mapping.Mapping {
	return &mapping.Mapping{
		ID:            "map-1",
		LightID:       "d073d5123456",
		Universe:      1,
		StartChannel:  1,
		Mode:          mode,
		Enabled:       true,
		BrightnessCap: 1.0,
		Kelvin:        3500,
	}
}

func TestDecodeColor_RGB8(t *testing.T) {
	m := testMapping(mapping.ModeRGB8)

	got, err := DecodeColor(m, []byte{255, 0, 0})
	if err != nil {
		t.Fatalf("DecodeColor() error = %v", err)
	}

	want := lifx.HSBK{Hue: 0, Saturation: 65535, Brightness: 65535, Kelvin: 3500}
	if got != want {
		t.Errorf("full red = %+v, want %+v", got, want)
	}
}

func TestDecodeColor_RGB16_UsesCombinedValues(t *testing.T) {
	m := testMapping(mapping.ModeRGB16)

	// Green at exactly half scale: MSB 0x80, LSB 0x00.
	got, err := DecodeColor(m, []byte{0, 0, 0x80, 0x00, 0, 0})
	if err != nil {
		t.Fatalf("DecodeColor() error = %v", err)
	}

	if got.Hue != 21845 {
		t.Errorf("Hue = %d, want 21845 (green)", got.Hue)
	}
	// 0x8000/0xFFFF of full scale.
	if got.Brightness < 32767 || got.Brightness > 32769 {
		t.Errorf("Brightness = %d, want ~32768", got.Brightness)
	}
}

func TestDecodeColor_RGBW8_WhiteLiftsComponents(t *testing.T) {
	m := testMapping(mapping.ModeRGBW8)

	// Pure white channel, no colour: each component becomes w*0.3.
	got, err := DecodeColor(m, []byte{0, 0, 0, 255})
	if err != nil {
		t.Fatalf("DecodeColor() error = %v", err)
	}

	if got.Saturation != 0 {
		t.Errorf("Saturation = %d, want 0 (white is achromatic)", got.Saturation)
	}
	wantBri := uint16(0.3*65535 + 0.5)
	if diff(got.Brightness, wantBri) > 1 {
		t.Errorf("Brightness = %d, want ~%d", got.Brightness, wantBri)
	}

	// White on top of a saturated colour clamps at full scale.
	got, err = DecodeColor(m, []byte{255, 0, 0, 255})
	if err != nil {
		t.Fatalf("DecodeColor() error = %v", err)
	}
	if got.Brightness != 65535 {
		t.Errorf("Brightness = %d, want 65535 (clamped)", got.Brightness)
	}
	if got.Saturation == 0 || got.Saturation == 65535 {
		t.Errorf("Saturation = %d, want partially desaturated red", got.Saturation)
	}
}

func TestDecodeColor_HSBK8(t *testing.T) {
	m := testMapping(mapping.ModeHSBK8)

	got, err := DecodeColor(m, []byte{128, 255, 255, 0})
	if err != nil {
		t.Fatalf("DecodeColor() error = %v", err)
	}

	if diff(got.Hue, 32896) > 130 { // 128/255 of the wheel
		t.Errorf("Hue = %d, want ~32896", got.Hue)
	}
	if got.Saturation != 65535 {
		t.Errorf("Saturation = %d, want 65535", got.Saturation)
	}
	if got.Kelvin != hsbkKelvinMin {
		t.Errorf("Kelvin = %d, want %d (channel 0)", got.Kelvin, hsbkKelvinMin)
	}

	got, err = DecodeColor(m, []byte{0, 0, 0, 255})
	if err != nil {
		t.Fatalf("DecodeColor() error = %v", err)
	}
	if got.Kelvin != hsbkKelvinMax {
		t.Errorf("Kelvin = %d, want %d (channel 255)", got.Kelvin, hsbkKelvinMax)
	}
}

func TestDecodeColor_HSBKBrightnessTracksSquare(t *testing.T) {
	m := testMapping(mapping.ModeHSBK8)

	// Half-scale brightness channel lands at a quarter of full output:
	// full16(128/255) = 32896, then scaled again by 128/255 and
	// truncated.
	got, err := DecodeColor(m, []byte{0, 0, 128, 0})
	if err != nil {
		t.Fatalf("DecodeColor() error = %v", err)
	}
	if got.Brightness != 16512 {
		t.Errorf("Brightness = %d, want 16512", got.Brightness)
	}

	// The cap multiplies on top of the channel scaling.
	m.BrightnessCap = 0.5
	got, err = DecodeColor(m, []byte{0, 0, 128, 0})
	if err != nil {
		t.Fatalf("DecodeColor() error = %v", err)
	}
	if got.Brightness != 8256 {
		t.Errorf("capped Brightness = %d, want 8256", got.Brightness)
	}
}

func TestScaleBrightness_Truncates(t *testing.T) {
	tests := []struct {
		v     uint16
		limit float64
		want  uint16
	}{
		{65535, 1.0, 65535},
		{65535, 0.5, 32767},
		{32896, 128.0 / 255, 16512},
		{100, 0, 0},
		{3, 0.9, 2},
	}

	for _, tt := range tests {
		if got := scaleBrightness(tt.v, tt.limit); got != tt.want {
			t.Errorf("scaleBrightness(%d, %v) = %d, want %d", tt.v, tt.limit, got, tt.want)
		}
	}
}

func TestDecodeColor_BrightnessCap(t *testing.T) {
	m := testMapping(mapping.ModeRGB8)
	m.BrightnessCap = 0.5

	got, err := DecodeColor(m, []byte{255, 255, 255})
	if err != nil {
		t.Fatalf("DecodeColor() error = %v", err)
	}

	if diff(got.Brightness, 32768) > 1 {
		t.Errorf("capped Brightness = %d, want ~32768", got.Brightness)
	}
}

func TestDecodeColor_RGBModesUseMappingKelvin(t *testing.T) {
	m := testMapping(mapping.ModeRGB8)
	m.Kelvin = 2700

	got, err := DecodeColor(m, []byte{255, 255, 255})
	if err != nil {
		t.Fatalf("DecodeColor() error = %v", err)
	}
	if got.Kelvin != 2700 {
		t.Errorf("Kelvin = %d, want 2700", got.Kelvin)
	}
}

func TestDecodeColor_WrongSliceLength(t *testing.T) {
	m := testMapping(mapping.ModeRGB8)

	if _, err := DecodeColor(m, []byte{1, 2}); !errors.Is(err, ErrBadSlice) {
		t.Errorf("DecodeColor() error = %v, want ErrBadSlice", err)
	}
}

func TestCombine16(t *testing.T) {
	tests := []struct {
		msb, lsb byte
		want     uint16
	}{
		{0x00, 0x00, 0},
		{0x00, 0x01, 1},
		{0x01, 0x00, 256},
		{0xFF, 0xFF, 65535},
		{0x80, 0x00, 32768},
	}

	for _, tt := range tests {
		if got := combine16(tt.msb, tt.lsb); got != tt.want {
			t.Errorf("combine16(%#x, %#x) = %d, want %d", tt.msb, tt.lsb, got, tt.want)
		}
	}
}

func diff(a, b uint16) int {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d
}
