package lifx

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Timing constants for the receive loop and probing.
const (
	// readDeadline bounds each blocking read so the loop can notice
	// shutdown promptly.
	readDeadline = 500 * time.Millisecond

	// readBufferSize is larger than any LIFX message.
	readBufferSize = 1024

	// probePollInterval is how often ProbeAddr checks for a reply.
	probePollInterval = 100 * time.Millisecond

	// probeTimeout is how long ProbeAddr waits for the first reply.
	probeTimeout = 2500 * time.Millisecond

	// probeSettle is how long ProbeAddr waits for label/version replies.
	probeSettle = 500 * time.Millisecond
)

// broadcastAddr is where tagged discovery packets are sent.
var broadcastAddr = &net.UDPAddr{IP: net.IPv4bcast, Port: DefaultPort}

// Logger is the minimal logging interface the client needs.
// Satisfied by logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Client.
type Options struct {
	// BindIP is the local address to bind the UDP socket to.
	// "0.0.0.0" or empty binds all interfaces.
	BindIP string

	// MinSendInterval is the minimum spacing between outbound packets.
	MinSendInterval time.Duration

	// DiscoveryDwell is how long Discover collects StateService replies.
	DiscoveryDwell time.Duration

	// DiscoverySettle is how long Discover waits for label and version
	// replies after requesting them.
	DiscoverySettle time.Duration

	// AuthorityWindow is how long a local colour command outranks
	// asynchronous device reports.
	AuthorityWindow time.Duration
}

// Stats contains client packet counters.
type Stats struct {
	PacketsSent     uint64
	PacketsReceived uint64
	PacketsIgnored  uint64
	ParseErrors     uint64
}

// Client is a LIFX LAN protocol client.
//
// It owns a single UDP socket shared by all devices: commands go out
// through it and all replies come back on it. A background goroutine
// reads replies and folds them into the device registry.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Outbound packets are serialised by the rate limiter, so commands
//     from many goroutines never burst onto the wire.
type Client struct {
	opts     Options
	logger   Logger
	conn     *net.UDPConn
	registry *Registry

	// source identifies this client instance. Devices echo it back;
	// the receive loop drops packets carrying anyone else's source.
	source uint32

	// sequence is the wrap-around message counter.
	sequence atomic.Uint32

	// sendMu serialises sends and protects lastSend for rate limiting.
	sendMu   sync.Mutex
	lastSend time.Time

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	packetsIgnored  atomic.Uint64
	parseErrors     atomic.Uint64
}

// NewClient opens the UDP socket and starts the receive loop.
//
// Parameters:
//   - opts: Client options (zero durations fall back to safe defaults)
//   - logger: Structured logger
//
// Returns:
//   - *Client: Running client
//   - error: If the socket cannot be opened or configured
func NewClient(opts Options, logger Logger) (*Client, error) {
	if opts.MinSendInterval <= 0 {
		opts.MinSendInterval = 50 * time.Millisecond
	}
	if opts.DiscoveryDwell <= 0 {
		opts.DiscoveryDwell = 5 * time.Second
	}
	if opts.DiscoverySettle <= 0 {
		opts.DiscoverySettle = 1500 * time.Millisecond
	}
	if opts.AuthorityWindow <= 0 {
		opts.AuthorityWindow = time.Second
	}

	bindIP := opts.BindIP
	if bindIP == "" {
		bindIP = "0.0.0.0"
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP(bindIP)})
	if err != nil {
		return nil, fmt.Errorf("binding UDP socket: %w", err)
	}

	if err := enableBroadcast(conn); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("enabling broadcast: %w", err)
	}

	c := &Client{
		opts:     opts,
		logger:   logger,
		conn:     conn,
		registry: NewRegistry(),
		source:   rand.Uint32() | 1, // never zero: zero means "any client" on the wire
		done:     make(chan struct{}),
	}

	c.wg.Add(1)
	go c.receiveLoop()

	c.logger.Info("lifx client started",
		"local_addr", conn.LocalAddr().String(),
		"source", c.source,
	)
	return c, nil
}

// enableBroadcast sets SO_BROADCAST so discovery can address
// 255.255.255.255.
func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// Registry returns the client's device registry.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Lights returns the devices classified as lights. Switch relays are
// excluded here but remain addressable through SetColor and SetPower.
func (c *Client) Lights() []Device {
	return c.registry.Lights()
}

// Light returns a single device by ID.
func (c *Client) Light(id string) (Device, bool) {
	return c.registry.Get(id)
}

// Stats returns a snapshot of the packet counters.
func (c *Client) Stats() Stats {
	return Stats{
		PacketsSent:     c.packetsSent.Load(),
		PacketsReceived: c.packetsReceived.Load(),
		PacketsIgnored:  c.packetsIgnored.Load(),
		ParseErrors:     c.parseErrors.Load(),
	}
}

// Close shuts down the receive loop and releases the socket.
// Safe to call multiple times.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close() //nolint:errcheck // Read loop exits on closed socket
		c.wg.Wait()
		c.logger.Info("lifx client closed",
			"packets_sent", c.packetsSent.Load(),
			"packets_received", c.packetsReceived.Load(),
		)
	})
	return nil
}

// closed reports whether Close has been called.
func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// send encodes and transmits one message, enforcing the minimum
// inter-send interval. Fire-and-forget: no acknowledgement is awaited.
func (c *Client) send(msgType uint16, target [8]byte, tagged bool, addr *net.UDPAddr, payload []byte) error {
	if c.closed() {
		return ErrClosed
	}

	seq := uint8(c.sequence.Add(1) & 0xFF) //nolint:gosec // sequence wraps at 256 by design
	packet := encodeMessage(msgType, target, tagged, c.source, seq, payload)

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if wait := c.opts.MinSendInterval - time.Since(c.lastSend); wait > 0 {
		time.Sleep(wait)
	}

	if _, err := c.conn.WriteToUDP(packet, addr); err != nil {
		return fmt.Errorf("sending message type %d: %w", msgType, err)
	}
	c.lastSend = time.Now()
	c.packetsSent.Add(1)
	return nil
}

// deviceAddr builds the UDP address for a registered device.
func deviceAddr(d Device) *net.UDPAddr {
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}
	return &net.UDPAddr{IP: net.ParseIP(d.IP), Port: port}
}

// SetColor commands a colour transition on a registered device and
// records the command for state authority.
//
// Parameters:
//   - id: Device serial
//   - color: Target colour
//   - fade: Transition duration
//
// Returns:
//   - error: ErrDeviceNotFound, ErrClosed, or a send error
func (c *Client) SetColor(id string, color HSBK, fade time.Duration) error {
	d, ok := c.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	payload := encodeSetColor(color, durationMs(fade))
	if err := c.send(MsgSetColor, d.Target, false, deviceAddr(d), payload); err != nil {
		return err
	}

	c.registry.markColorSet(id, color, time.Now())
	return nil
}

// SetColorAddr commands a colour on a raw address without touching the
// registry. Used for testing a light before it is mapped.
func (c *Client) SetColorAddr(ip string, color HSBK, fade time.Duration) error {
	addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: DefaultPort}
	if addr.IP == nil {
		return fmt.Errorf("%w: bad address %q", ErrDeviceNotFound, ip)
	}
	return c.send(MsgSetColor, [8]byte{}, false, addr, encodeSetColor(color, durationMs(fade)))
}

// SetPower switches a registered device on or off.
func (c *Client) SetPower(id string, on bool, fade time.Duration) error {
	d, ok := c.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return c.send(MsgSetPower, d.Target, false, deviceAddr(d), encodeSetPower(on, durationMs(fade)))
}

// Discover broadcasts a discovery request and builds up the registry.
//
// The sequence is: broadcast GetService, dwell while StateService
// replies arrive, request label and version from every device that
// still lacks them, wait for those replies to settle, then flag Switch
// relays so they are excluded from light listings.
//
// Parameters:
//   - ctx: Cancels the dwell and settle waits
//
// Returns:
//   - []Device: Snapshot of all lights known after discovery
//   - error: If the broadcast fails or ctx is cancelled
func (c *Client) Discover(ctx context.Context) ([]Device, error) {
	c.logger.Info("starting discovery", "dwell", c.opts.DiscoveryDwell.String())

	if err := c.send(MsgGetService, [8]byte{}, true, broadcastAddr, nil); err != nil {
		return nil, fmt.Errorf("broadcasting discovery: %w", err)
	}

	if err := c.sleep(ctx, c.opts.DiscoveryDwell); err != nil {
		return nil, err
	}

	// Request identity serially; the rate limiter spaces the packets.
	for _, d := range c.registry.List() {
		if d.Label == "" {
			if err := c.send(MsgGetLabel, d.Target, false, deviceAddr(d), nil); err != nil {
				c.logger.Warn("label request failed", "device", d.ID, "error", err)
			}
		}
		if d.Model == "" {
			if err := c.send(MsgGetVersion, d.Target, false, deviceAddr(d), nil); err != nil {
				c.logger.Warn("version request failed", "device", d.ID, "error", err)
			}
		}
	}

	if err := c.sleep(ctx, c.opts.DiscoverySettle); err != nil {
		return nil, err
	}

	if flagged := c.registry.classifySwitches(); len(flagged) > 0 {
		c.logger.Info("excluded switch devices from listings", "count", len(flagged), "ids", flagged)
	}

	devices := c.registry.Lights()
	c.logger.Info("discovery complete", "lights", len(devices))
	return devices, nil
}

// ProbeAddr probes a single IP address for a LIFX light. Used to add
// devices on networks where broadcast discovery is filtered.
//
// Parameters:
//   - ctx: Cancels the wait
//   - ip: IPv4 address to probe
//
// Returns:
//   - Device: The light found at the address
//   - error: ErrProbeTimeout if nothing answers, ErrNotALight for a
//     Switch relay
func (c *Client) ProbeAddr(ctx context.Context, ip string) (Device, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: DefaultPort}
	if addr.IP == nil {
		return Device{}, fmt.Errorf("%w: bad address %q", ErrProbeTimeout, ip)
	}

	if err := c.send(MsgGetService, [8]byte{}, false, addr, nil); err != nil {
		return Device{}, fmt.Errorf("probing %s: %w", ip, err)
	}

	// Wait for the StateService reply to land in the registry.
	deadline := time.Now().Add(probeTimeout)
	var d Device
	for {
		var ok bool
		if d, ok = c.registry.GetByIP(ip); ok {
			break
		}
		if time.Now().After(deadline) {
			return Device{}, fmt.Errorf("%w: %s", ErrProbeTimeout, ip)
		}
		if err := c.sleep(ctx, probePollInterval); err != nil {
			return Device{}, err
		}
	}

	if err := c.send(MsgGetLabel, d.Target, false, deviceAddr(d), nil); err != nil {
		return Device{}, err
	}
	if err := c.send(MsgGetVersion, d.Target, false, deviceAddr(d), nil); err != nil {
		return Device{}, err
	}
	if err := c.sleep(ctx, probeSettle); err != nil {
		return Device{}, err
	}

	d, _ = c.registry.Get(d.ID)
	if isSwitchProduct(d.Product, d.Model) {
		c.registry.markNotLight(d.ID)
		return Device{}, fmt.Errorf("%w: %s is %s", ErrNotALight, ip, d.Model)
	}
	return d, nil
}

// RefreshStates requests the current light state from every registered
// device. Replies arrive asynchronously and pass through the state
// authority check before updating the registry.
func (c *Client) RefreshStates() {
	for _, d := range c.registry.Lights() {
		if err := c.send(MsgGetColor, d.Target, false, deviceAddr(d), nil); err != nil {
			c.logger.Warn("state refresh failed", "device", d.ID, "error", err)
		}
	}
}

// receiveLoop reads datagrams until the client closes, folding replies
// into the registry.
func (c *Client) receiveLoop() {
	defer c.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return
		}

		n, addr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if c.closed() {
				return
			}
			c.logger.Warn("read error", "error", err)
			continue
		}

		c.handlePacket(buf[:n], addr)
	}
}

// handlePacket parses one datagram and applies it to the registry.
func (c *Client) handlePacket(data []byte, addr *net.UDPAddr) {
	header, payload, err := parseHeader(data)
	if err != nil {
		c.parseErrors.Add(1)
		return
	}

	// Devices echo our source in replies. Anything else is another
	// client's traffic (or our own broadcast looping back).
	if header.Source != c.source {
		c.packetsIgnored.Add(1)
		return
	}

	c.packetsReceived.Add(1)
	now := time.Now()

	switch header.Type {
	case MsgStateService:
		service, port, err := parseStateService(payload)
		if err != nil || service != 1 { // service 1 is UDP
			return
		}
		id := c.registry.upsert(header.Target, addr.IP.String(), int(port), now)
		c.logger.Debug("device responded", "device", id, "addr", addr.String())

	case MsgStateLabel:
		label, err := parseStateLabel(payload)
		if err != nil {
			return
		}
		c.registry.setLabel(deviceID(header.Target), label, now)

	case MsgStateVersion:
		vendor, product, err := parseStateVersion(payload)
		if err != nil {
			return
		}
		if vendor != vendorLIFX {
			c.logger.Debug("non-LIFX vendor", "vendor", vendor, "device", deviceID(header.Target))
		}
		c.registry.setVersion(deviceID(header.Target), vendor, product, now)

	case MsgStatePower:
		power, err := parseStatePower(payload)
		if err != nil {
			return
		}
		c.registry.setPower(deviceID(header.Target), power, now)

	case MsgStateLight:
		state, err := parseStateLight(payload)
		if err != nil {
			return
		}
		c.registry.applyReportedState(deviceID(header.Target), state, c.opts.AuthorityWindow, now)

	default:
		// Unsolicited or unsupported message; nothing to fold in.
	}
}

// sleep waits for d, returning early if ctx is cancelled or the client
// is closed.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// durationMs converts a duration to the wire's millisecond field.
func durationMs(d time.Duration) uint32 {
	if d < 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(ms) //nolint:gosec // bounded above
}
