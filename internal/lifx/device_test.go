package lifx

import (
	"testing"
	"time"
)

func testTarget(b byte) [8]byte {
	return [8]byte{0xd0, 0x73, 0xd5, 0x00, 0x00, b}
}

func TestRegistry_UpsertAndGet(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	id := r.upsert(testTarget(1), "192.168.1.10", DefaultPort, now)
	if id != "d073d5000001" {
		t.Errorf("id = %q, want %q", id, "d073d5000001")
	}

	d, ok := r.Get(id)
	if !ok {
		t.Fatal("Get() returned false for known device")
	}
	if d.IP != "192.168.1.10" {
		t.Errorf("IP = %q, want 192.168.1.10", d.IP)
	}

	// Re-discovery at a new address refreshes the IP.
	r.upsert(testTarget(1), "192.168.1.99", DefaultPort, now.Add(time.Minute))
	d, _ = r.Get(id)
	if d.IP != "192.168.1.99" {
		t.Errorf("IP after re-discovery = %q, want 192.168.1.99", d.IP)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistry_GetByIP(t *testing.T) {
	r := NewRegistry()
	r.upsert(testTarget(1), "192.168.1.10", DefaultPort, time.Now())

	if _, ok := r.GetByIP("192.168.1.10"); !ok {
		t.Error("GetByIP() returned false for known address")
	}
	if _, ok := r.GetByIP("192.168.1.11"); ok {
		t.Error("GetByIP() returned true for unknown address")
	}
}

func TestRegistry_StateAuthority(t *testing.T) {
	const window = time.Second

	commanded := HSBK{Hue: 100, Saturation: 65535, Brightness: 65535, Kelvin: 3500}
	reported := HSBK{Hue: 50000, Saturation: 1000, Brightness: 2000, Kelvin: 2700}

	tests := []struct {
		name        string
		reportDelay time.Duration
		wantApplied bool
		wantColor   HSBK
	}{
		{
			name:        "report inside window is rejected",
			reportDelay: 500 * time.Millisecond,
			wantApplied: false,
			wantColor:   commanded,
		},
		{
			name:        "report exactly at window boundary is rejected",
			reportDelay: window,
			wantApplied: false,
			wantColor:   commanded,
		},
		{
			name:        "report after window is applied",
			reportDelay: window + time.Millisecond,
			wantApplied: true,
			wantColor:   reported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			base := time.Now()
			id := r.upsert(testTarget(1), "192.168.1.10", DefaultPort, base)

			r.markColorSet(id, commanded, base)

			applied := r.applyReportedState(id, LightState{
				Color: reported,
				Power: 65535,
			}, window, base.Add(tt.reportDelay))

			if applied != tt.wantApplied {
				t.Errorf("applied = %v, want %v", applied, tt.wantApplied)
			}

			d, _ := r.Get(id)
			if d.Color != tt.wantColor {
				t.Errorf("Color = %+v, want %+v", d.Color, tt.wantColor)
			}
			// Power is always accepted regardless of the window.
			if d.Power != 65535 {
				t.Errorf("Power = %d, want 65535", d.Power)
			}
		})
	}
}

func TestRegistry_ReportedStateForNeverCommandedDevice(t *testing.T) {
	r := NewRegistry()
	base := time.Now()
	id := r.upsert(testTarget(1), "192.168.1.10", DefaultPort, base)

	// No colour has ever been commanded; the zero colorSetAt is far in
	// the past, so the report applies immediately.
	reported := HSBK{Hue: 1, Saturation: 2, Brightness: 3, Kelvin: 2700}
	if !r.applyReportedState(id, LightState{Color: reported}, time.Second, base) {
		t.Error("report for never-commanded device was rejected")
	}
}

func TestRegistry_ClassifySwitches(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	bulb := r.upsert(testTarget(1), "192.168.1.10", DefaultPort, now)
	r.setVersion(bulb, vendorLIFX, 27, now)

	relay := r.upsert(testTarget(2), "192.168.1.11", DefaultPort, now)
	r.setVersion(relay, vendorLIFX, 70, now)

	// Unknown product ID but a Switch model name.
	oddball := r.upsert(testTarget(3), "192.168.1.12", DefaultPort, now)
	r.mu.Lock()
	r.devices[oddball].Model = "LIFX Switch Gen9"
	r.mu.Unlock()

	flagged := r.classifySwitches()
	if len(flagged) != 2 {
		t.Fatalf("flagged %d devices, want 2: %v", len(flagged), flagged)
	}

	// A second pass finds nothing new.
	if again := r.classifySwitches(); len(again) != 0 {
		t.Errorf("second pass flagged %v, want none", again)
	}

	if lights := r.Lights(); len(lights) != 1 || lights[0].ID != bulb {
		t.Errorf("Lights() = %v, want only the bulb", lights)
	}

	// Relays stay resolvable so configured mappings keep dispatching.
	d, ok := r.Get(relay)
	if !ok {
		t.Fatal("switch relay was removed from the registry")
	}
	if d.IsLight {
		t.Error("relay still classified as a light")
	}
	if _, ok := r.Get(oddball); !ok {
		t.Error("switch by model name was removed from the registry")
	}
	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}
}

func TestParseDeviceID(t *testing.T) {
	target, err := parseDeviceID("d073d5123456")
	if err != nil {
		t.Fatalf("parseDeviceID() error = %v", err)
	}
	if deviceID(target) != "d073d5123456" {
		t.Errorf("round trip = %q, want d073d5123456", deviceID(target))
	}

	for _, bad := range []string{"", "xyz", "d073d512345", "d073d51234567890"} {
		if _, err := parseDeviceID(bad); err == nil {
			t.Errorf("parseDeviceID(%q) expected error", bad)
		}
	}
}

func TestIsSwitchProduct(t *testing.T) {
	tests := []struct {
		name    string
		product uint32
		model   string
		want    bool
	}{
		{"known switch ID", 70, "", true},
		{"newer switch ID", 111, "", true},
		{"bulb", 27, "LIFX A19", false},
		{"unknown ID with switch name", 999, "LIFX Switch", true},
		{"unknown ID generic name", 999, "LIFX Device", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSwitchProduct(tt.product, tt.model); got != tt.want {
				t.Errorf("isSwitchProduct(%d, %q) = %v, want %v", tt.product, tt.model, got, tt.want)
			}
		})
	}
}
