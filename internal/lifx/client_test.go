package lifx

import (
	"encoding/binary"
	"net"
	"testing"
	"time"
)

// testLogger discards all output.
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// fakeDevice is a UDP listener standing in for a bulb.
type fakeDevice struct {
	conn *net.UDPConn
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("binding fake device: %v", err)
	}
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck // Test cleanup
	return &fakeDevice{conn: conn}
}

func (f *fakeDevice) port() int {
	return f.conn.LocalAddr().(*net.UDPAddr).Port
}

// receive reads one datagram with a deadline.
func (f *fakeDevice) receive(t *testing.T) ([]byte, *net.UDPAddr) {
	t.Helper()
	buf := make([]byte, readBufferSize)
	if err := f.conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("setting deadline: %v", err)
	}
	n, addr, err := f.conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("fake device read: %v", err)
	}
	return buf[:n], addr
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BindIP:          "127.0.0.1",
		MinSendInterval: 10 * time.Millisecond,
	}, testLogger{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { c.Close() }) //nolint:errcheck // Test cleanup
	return c
}

func TestClient_SetColorSendsPacket(t *testing.T) {
	client := newTestClient(t)
	device := newFakeDevice(t)

	target := testTarget(1)
	id := client.registry.upsert(target, "127.0.0.1", device.port(), time.Now())

	color := HSBK{Hue: 1000, Saturation: 2000, Brightness: 3000, Kelvin: 3500}
	if err := client.SetColor(id, color, 20*time.Millisecond); err != nil {
		t.Fatalf("SetColor() error = %v", err)
	}

	data, _ := device.receive(t)
	h, payload, err := parseHeader(data)
	if err != nil {
		t.Fatalf("parseHeader() error = %v", err)
	}

	if h.Type != MsgSetColor {
		t.Errorf("type = %d, want %d", h.Type, MsgSetColor)
	}
	if h.Target != target {
		t.Errorf("target = %x, want %x", h.Target, target)
	}
	if got := binary.LittleEndian.Uint16(payload[1:3]); got != color.Hue {
		t.Errorf("hue on wire = %d, want %d", got, color.Hue)
	}
	if got := binary.LittleEndian.Uint32(payload[9:13]); got != 20 {
		t.Errorf("duration on wire = %d, want 20", got)
	}

	// The command must win the authority window.
	d, _ := client.registry.Get(id)
	if d.Color != color {
		t.Errorf("registry colour = %+v, want %+v", d.Color, color)
	}
}

func TestClient_SetColorUnknownDevice(t *testing.T) {
	client := newTestClient(t)

	err := client.SetColor("d073d5ffffff", HSBK{}, 0)
	if err == nil {
		t.Fatal("SetColor() expected error for unknown device")
	}
}

func TestClient_RateLimiting(t *testing.T) {
	client := newTestClient(t)
	device := newFakeDevice(t)

	id := client.registry.upsert(testTarget(1), "127.0.0.1", device.port(), time.Now())

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := client.SetColor(id, HSBK{Kelvin: 3500}, 0); err != nil {
			t.Fatalf("SetColor() error = %v", err)
		}
	}
	elapsed := time.Since(start)

	// Three sends with a 10 ms floor between them: at least 20 ms total.
	if elapsed < 20*time.Millisecond {
		t.Errorf("three sends took %v, rate limiter should enforce >= 20ms", elapsed)
	}

	for i := 0; i < 3; i++ {
		device.receive(t)
	}
}

func TestClient_ReceiveLoopFoldsStateService(t *testing.T) {
	client := newTestClient(t)
	device := newFakeDevice(t)

	clientAddr := client.conn.LocalAddr().(*net.UDPAddr)

	// Reply as a device would: echo the client's source.
	payload := make([]byte, 5)
	payload[0] = 1 // UDP service
	binary.LittleEndian.PutUint32(payload[1:5], DefaultPort)
	reply := encodeMessage(MsgStateService, testTarget(9), false, client.source, 1, payload)

	if _, err := device.conn.WriteToUDP(reply, clientAddr); err != nil {
		t.Fatalf("sending reply: %v", err)
	}

	id := deviceID(testTarget(9))
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := client.registry.Get(id); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("StateService reply never reached the registry")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_IgnoresForeignSource(t *testing.T) {
	client := newTestClient(t)
	device := newFakeDevice(t)

	clientAddr := client.conn.LocalAddr().(*net.UDPAddr)

	payload := make([]byte, 5)
	payload[0] = 1
	binary.LittleEndian.PutUint32(payload[1:5], DefaultPort)
	reply := encodeMessage(MsgStateService, testTarget(8), false, client.source+1, 1, payload)

	if _, err := device.conn.WriteToUDP(reply, clientAddr); err != nil {
		t.Fatalf("sending reply: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, ok := client.registry.Get(deviceID(testTarget(8))); ok {
		t.Error("packet with foreign source was folded into the registry")
	}
	if client.Stats().PacketsIgnored == 0 {
		t.Error("ignored counter not incremented")
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client, err := NewClient(Options{BindIP: "127.0.0.1"}, testLogger{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := client.SetColorAddr("127.0.0.1", HSBK{}, 0); err != ErrClosed {
		t.Errorf("SetColorAddr() after close = %v, want ErrClosed", err)
	}
}

func TestDurationMs(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want uint32
	}{
		{0, 0},
		{-time.Second, 0},
		{20 * time.Millisecond, 20},
		{time.Second, 1000},
	}
	for _, tt := range tests {
		if got := durationMs(tt.in); got != tt.want {
			t.Errorf("durationMs(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
