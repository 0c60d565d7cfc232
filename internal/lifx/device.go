package lifx

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Device represents a LIFX light discovered on the LAN.
//
// Devices are identified by their serial number (6 bytes, reported in
// the packet target field). The IP address is where replies came from
// and is refreshed on every packet, so devices that move between DHCP
// leases keep working.
type Device struct {
	// ID is the lowercase hex serial, e.g. "d073d5123456".
	ID string

	// Target is the serial padded to the 8-byte wire field.
	Target [8]byte

	// IP is the device's last known IPv4 address.
	IP string

	// Port is the UDP service port reported during discovery.
	Port int

	// Label is the user-assigned device name.
	Label string

	// Vendor and Product identify the hardware.
	Vendor  uint32
	Product uint32

	// Model is the marketing name derived from Product.
	Model string

	// Power is the last reported power level (0 or 65535).
	Power uint16

	// IsLight is false for Switch relays. Non-lights are hidden from
	// listings but stay addressable, so a mapping that names one keeps
	// dispatching even if the classification is wrong.
	IsLight bool

	// Color is the current colour: either the last command this bridge
	// sent, or a device report that arrived outside the authority window.
	Color HSBK

	// LastSeen is when the device last answered anything.
	LastSeen time.Time

	// colorSetAt is when this bridge last commanded a colour. Zero if
	// the bridge has never addressed the device.
	colorSetAt time.Time
}

// IsOn reports whether the device power level is non-zero.
func (d *Device) IsOn() bool {
	return d.Power > 0
}

// deviceID formats a wire target as a registry key.
func deviceID(target [8]byte) string {
	return hex.EncodeToString(target[:6])
}

// parseDeviceID converts a hex serial back to a wire target.
func parseDeviceID(id string) ([8]byte, error) {
	var target [8]byte
	raw, err := hex.DecodeString(id)
	if err != nil || len(raw) != 6 {
		return target, fmt.Errorf("%w: %q", ErrInvalidDeviceID, id)
	}
	copy(target[:6], raw)
	return target, nil
}

// Registry is a thread-safe in-memory collection of discovered devices.
//
// The registry is the single source of truth for device state. The
// client's receive loop writes to it; discovery, the dispatcher, and
// the API read from it.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*Device),
	}
}

// upsert records a discovery response, creating the device if new and
// refreshing IP, port, and last-seen if known. Returns the device ID.
func (r *Registry) upsert(target [8]byte, ip string, port int, now time.Time) string {
	id := deviceID(target)

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		d = &Device{
			ID:      id,
			Target:  target,
			IsLight: true,
		}
		r.devices[id] = d
	}
	d.IP = ip
	d.Port = port
	d.LastSeen = now
	return id
}

// Get returns a copy of the device, or false if unknown.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// GetByIP returns a copy of the first device with the given address.
func (r *Registry) GetByIP(ip string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.devices {
		if d.IP == ip {
			return *d, true
		}
	}
	return Device{}, false
}

// List returns a snapshot of all known devices, relays included.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	return out
}

// Lights returns a snapshot of the devices classified as lights.
func (r *Registry) Lights() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		if d.IsLight {
			out = append(out, *d)
		}
	}
	return out
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// setLabel records a StateLabel reply.
func (r *Registry) setLabel(id, label string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[id]; ok {
		d.Label = label
		d.LastSeen = now
	}
}

// setVersion records a StateVersion reply and derives the model name.
func (r *Registry) setVersion(id string, vendor, product uint32, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[id]; ok {
		d.Vendor = vendor
		d.Product = product
		d.Model = productName(product)
		d.LastSeen = now
	}
}

// setPower records a StatePower reply.
func (r *Registry) setPower(id string, power uint16, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[id]; ok {
		d.Power = power
		d.LastSeen = now
	}
}

// markColorSet records a colour command this bridge just sent. The
// commanded value wins over device reports until the authority window
// elapses, because StateLight replies can describe a colour from before
// the command was applied.
func (r *Registry) markColorSet(id string, color HSBK, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[id]; ok {
		d.Color = color
		d.colorSetAt = now
	}
}

// applyReportedState records a StateLight report. The colour is only
// accepted if the last local command is older than the authority
// window; power and label are always accepted. Returns true if the
// reported colour was applied.
func (r *Registry) applyReportedState(id string, state LightState, window time.Duration, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return false
	}

	d.Power = state.Power
	if state.Label != "" {
		d.Label = state.Label
	}
	d.LastSeen = now

	if now.Sub(d.colorSetAt) > window {
		d.Color = state.Color
		return true
	}
	return false
}

// classifySwitches flags relay devices after discovery has collected
// version info. Flagged devices stay in the registry so mappings that
// address them keep working. Returns the IDs newly flagged.
func (r *Registry) classifySwitches() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var flagged []string
	for id, d := range r.devices {
		if d.IsLight && isSwitchProduct(d.Product, d.Model) {
			d.IsLight = false
			flagged = append(flagged, id)
		}
	}
	return flagged
}

// markNotLight flags a single device as a relay.
func (r *Registry) markNotLight(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[id]; ok {
		d.IsLight = false
	}
}
