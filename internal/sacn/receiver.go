package sacn

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Receive loop constants.
const (
	// readDeadline bounds each blocking read so loops notice shutdown.
	readDeadline = 500 * time.Millisecond

	// readBufferSize covers a full E1.31 packet (638 bytes) with room
	// to spare.
	readBufferSize = 1024
)

// Logger is the minimal logging interface the receiver needs.
// Satisfied by logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// FrameHandler receives decoded DMX frames. Called from receiver
// goroutines; implementations must be safe for concurrent use and
// should return quickly.
type FrameHandler func(Frame)

// Stats contains receiver counters.
type Stats struct {
	FramesReceived uint64    `json:"frames_received"`
	FramesDropped  uint64    `json:"frames_dropped"`
	ParseErrors    uint64    `json:"parse_errors"`
	LastFrameAt    time.Time `json:"last_frame_at"`
}

// Receiver listens for E1.31 DMX frames on a set of universes.
//
// Each universe gets its own multicast socket and read goroutine; a
// further unicast socket accepts frames sent directly to this host.
// Frames addressed to universes outside the configured set, preview
// frames, and alternate start codes are dropped.
type Receiver struct {
	bindIP    string
	port      int
	logger    Logger
	handler   FrameHandler
	universes map[uint16]bool

	mu      sync.Mutex
	started bool
	conns   []*net.UDPConn
	done    chan struct{}
	wg      sync.WaitGroup

	framesReceived atomic.Uint64
	framesDropped  atomic.Uint64
	parseErrors    atomic.Uint64
	lastFrameUnix  atomic.Int64
}

// NewReceiver creates a receiver for the given universes.
//
// Parameters:
//   - bindIP: Local interface address ("" or "0.0.0.0" for all)
//   - port: UDP port (DefaultPort for standard E1.31)
//   - universes: Universe numbers to accept
//   - handler: Callback invoked for each accepted frame
//   - logger: Structured logger
func NewReceiver(bindIP string, port int, universes []uint16, handler FrameHandler, logger Logger) *Receiver {
	if port <= 0 {
		port = DefaultPort
	}
	set := make(map[uint16]bool, len(universes))
	for _, u := range universes {
		set[u] = true
	}
	return &Receiver{
		bindIP:    bindIP,
		port:      port,
		logger:    logger,
		handler:   handler,
		universes: set,
		done:      make(chan struct{}),
	}
}

// Universes returns the configured universe set, sorted ascending.
func (r *Receiver) Universes() []uint16 {
	out := make([]uint16, 0, len(r.universes))
	for u := range r.universes {
		out = append(out, u)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Start opens the sockets and begins receiving.
//
// One multicast listener is joined per universe, plus a unicast
// listener for senders that address this host directly. A multicast
// join failure is logged and skipped: unicast still works, and some
// networks filter multicast entirely.
//
// Returns:
//   - error: ErrNoUniverses, ErrAlreadyStarted, or if no socket at all
//     could be opened
func (r *Receiver) Start() error {
	if len(r.universes) == 0 {
		return ErrNoUniverses
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}

	var ifi *net.Interface // nil lets the kernel pick the interface

	for _, universe := range r.Universes() {
		group := &net.UDPAddr{
			IP:   net.ParseIP(MulticastGroup(universe)),
			Port: r.port,
		}
		conn, err := net.ListenMulticastUDP("udp4", ifi, group)
		if err != nil {
			r.logger.Warn("multicast join failed, relying on unicast",
				"universe", universe,
				"group", group.String(),
				"error", err,
			)
			continue
		}
		r.conns = append(r.conns, conn)
		r.wg.Add(1)
		go r.readLoop(conn)
		r.logger.Info("joined multicast group", "universe", universe, "group", group.String())
	}

	// Unicast listener for directly addressed frames.
	bindIP := r.bindIP
	if bindIP == "" {
		bindIP = "0.0.0.0"
	}
	unicast, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP(bindIP), Port: r.port})
	if err != nil {
		if len(r.conns) == 0 {
			r.closeLocked()
			return fmt.Errorf("opening unicast listener: %w", err)
		}
		// Multicast listeners on the same port typically hold the bind.
		r.logger.Debug("unicast listener unavailable", "error", err)
	} else {
		r.conns = append(r.conns, unicast)
		r.wg.Add(1)
		go r.readLoop(unicast)
	}

	r.started = true
	r.logger.Info("sacn receiver started",
		"universes", r.Universes(),
		"port", r.port,
	)
	return nil
}

// Stop closes all sockets and waits for the read loops to exit.
// Safe to call multiple times.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	close(r.done)
	r.closeLocked()
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("sacn receiver stopped",
		"frames_received", r.framesReceived.Load(),
		"parse_errors", r.parseErrors.Load(),
	)
}

// closeLocked closes all sockets. Caller must hold mu.
func (r *Receiver) closeLocked() {
	for _, conn := range r.conns {
		conn.Close() //nolint:errcheck // Read loops exit on closed sockets
	}
	r.conns = nil
}

// Stats returns a snapshot of the receiver counters.
func (r *Receiver) Stats() Stats {
	s := Stats{
		FramesReceived: r.framesReceived.Load(),
		FramesDropped:  r.framesDropped.Load(),
		ParseErrors:    r.parseErrors.Load(),
	}
	if unix := r.lastFrameUnix.Load(); unix > 0 {
		s.LastFrameAt = time.Unix(0, unix)
	}
	return s
}

// readLoop reads datagrams from one socket until shutdown.
func (r *Receiver) readLoop(conn *net.UDPConn) {
	defer r.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-r.done:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-r.done:
				return
			default:
			}
			r.logger.Warn("sacn read error", "error", err)
			continue
		}

		r.handleDatagram(buf[:n])
	}
}

// handleDatagram parses and filters one datagram, then hands it to the
// frame handler.
func (r *Receiver) handleDatagram(data []byte) {
	frame, err := ParsePacket(data)
	if err != nil {
		r.parseErrors.Add(1)
		return
	}

	if !r.universes[frame.Universe] || frame.Preview {
		r.framesDropped.Add(1)
		return
	}

	r.framesReceived.Add(1)
	r.lastFrameUnix.Store(time.Now().UnixNano())

	if frame.Terminated {
		r.logger.Info("source terminated stream",
			"universe", frame.Universe,
			"source", frame.SourceName,
		)
		return
	}

	r.handler(frame)
}
