package dispatch

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/luxbridge/internal/lifx"
	"github.com/nerrad567/luxbridge/internal/mapping"
	"github.com/nerrad567/luxbridge/internal/sacn"
)

// Logger is the minimal logging interface the dispatcher needs.
// Satisfied by logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LightController is the slice of the LIFX client the dispatcher uses.
type LightController interface {
	SetColor(id string, color lifx.HSBK, fade time.Duration) error
}

// MetricsSink receives per-frame dispatch measurements. Implementations
// must not block; a nil sink disables metrics.
type MetricsSink interface {
	RecordFrame(universe uint16, mappings, commands int, elapsed time.Duration)
}

// Stats contains dispatcher counters.
type Stats struct {
	FramesHandled uint64 `json:"frames_handled"`
	CommandsSent  uint64 `json:"commands_sent"`
	Suppressed    uint64 `json:"suppressed"`
	SendErrors    uint64 `json:"send_errors"`
}

// Dispatcher turns DMX frames into LIFX colour commands.
//
// For each frame it walks the enabled mappings of that universe,
// suppresses channel blocks that have not changed since the last send,
// decodes the rest, and fires colour commands. A failure on one
// mapping never blocks the others.
//
// Thread Safety:
//   - HandleFrame may be called from multiple receiver goroutines.
type Dispatcher struct {
	store   *mapping.Store
	lights  LightController
	logger  Logger
	fade    time.Duration
	metrics MetricsSink

	// threshold is the minimum per-channel delta (in 8-bit steps) that
	// counts as a change. 16-bit modes always react to a combined-value
	// delta of 1 so fine console fades are never quantised away.
	threshold int

	// lastSent holds the channel block most recently dispatched per
	// mapping, keyed by light, universe, start channel, and mode.
	mu       sync.Mutex
	lastSent map[string][]byte

	framesHandled atomic.Uint64
	commandsSent  atomic.Uint64
	suppressed    atomic.Uint64
	sendErrors    atomic.Uint64
}

// Options configures a Dispatcher.
type Options struct {
	// Fade is the transition duration sent with every colour command.
	Fade time.Duration

	// Threshold is the 8-bit change threshold (minimum 1).
	Threshold int

	// Metrics is an optional sink for per-frame measurements.
	Metrics MetricsSink
}

// NewDispatcher creates a dispatcher reading mappings from store and
// commanding lights through the controller.
func NewDispatcher(store *mapping.Store, lights LightController, opts Options, logger Logger) *Dispatcher {
	if opts.Threshold < 1 {
		opts.Threshold = 1
	}
	return &Dispatcher{
		store:     store,
		lights:    lights,
		logger:    logger,
		fade:      opts.Fade,
		threshold: opts.Threshold,
		metrics:   opts.Metrics,
		lastSent:  make(map[string][]byte),
	}
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		FramesHandled: d.framesHandled.Load(),
		CommandsSent:  d.commandsSent.Load(),
		Suppressed:    d.suppressed.Load(),
		SendErrors:    d.sendErrors.Load(),
	}
}

// HandleFrame dispatches one DMX frame. Implements sacn.FrameHandler.
func (d *Dispatcher) HandleFrame(frame sacn.Frame) {
	start := time.Now()
	d.framesHandled.Add(1)

	mappings := d.store.ByUniverse(frame.Universe)
	commands := 0

	for i := range mappings {
		m := &mappings[i]

		slice, ok := m.Slice(frame.Data)
		if !ok {
			// Frame shorter than the mapping's footprint; the console
			// is not transmitting these slots.
			continue
		}

		if !d.changed(m, slice) {
			d.suppressed.Add(1)
			continue
		}

		color, err := DecodeColor(m, slice)
		if err != nil {
			d.logger.Warn("decode failed", "mapping", m.ID, "error", err)
			continue
		}

		if err := d.lights.SetColor(m.LightID, color, d.fade); err != nil {
			// Per-mapping isolation: a missing light must not stall
			// the rest of the universe.
			d.sendErrors.Add(1)
			d.logger.Warn("colour command failed",
				"mapping", m.ID,
				"light", m.LightID,
				"error", err,
			)
			continue
		}

		d.commandsSent.Add(1)
		commands++
	}

	if d.metrics != nil {
		d.metrics.RecordFrame(frame.Universe, len(mappings), commands, time.Since(start))
	}
}

// Reset clears the change-suppression state so the next frame is
// dispatched in full. Called when mappings change or dispatch restarts.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSent = make(map[string][]byte)
}

// changed reports whether the channel block differs from the last
// dispatched values, and records it as the new baseline when it does.
//
// The first block for a mapping always counts as changed. 8-bit modes
// use the configured per-channel threshold; 16-bit modes compare the
// combined values so a single least-significant-bit step registers.
func (d *Dispatcher) changed(m *mapping.Mapping, slice []byte) bool {
	key := suppressionKey(m)

	d.mu.Lock()
	defer d.mu.Unlock()

	prev, ok := d.lastSent[key]
	if ok && len(prev) == len(slice) && !exceedsThreshold(prev, slice, m.Mode, d.threshold) {
		return false
	}

	stored := make([]byte, len(slice))
	copy(stored, slice)
	d.lastSent[key] = stored
	return true
}

// suppressionKey identifies a mapping's channel block. Mode and
// position are part of the key so editing a mapping invalidates its
// baseline.
func suppressionKey(m *mapping.Mapping) string {
	return fmt.Sprintf("%s|%d|%d|%s", m.LightID, m.Universe, m.StartChannel, m.Mode)
}

// exceedsThreshold compares two equal-length channel blocks.
func exceedsThreshold(prev, next []byte, mode mapping.Mode, threshold int) bool {
	if mode.Is16Bit() {
		for i := 0; i+1 < len(next); i += 2 {
			a := combine16(prev[i], prev[i+1])
			b := combine16(next[i], next[i+1])
			if a != b {
				return true
			}
		}
		return false
	}

	for i := range next {
		delta := int(next[i]) - int(prev[i])
		if delta < 0 {
			delta = -delta
		}
		if delta >= threshold {
			return true
		}
	}
	return false
}
