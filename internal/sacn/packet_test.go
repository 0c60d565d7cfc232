package sacn

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildPacket constructs a valid E1.31 data packet for tests.
func buildPacket(universe uint16, sourceName string, options uint8, startCode uint8, slots []byte) []byte {
	data := make([]byte, offData+len(slots))
	binary.BigEndian.PutUint16(data[offPreamble:], preamble)
	copy(data[offACNID:], acnIdentifier)
	copy(data[offSourceName:], sourceName)
	data[offPriority] = 100
	data[offSequence] = 7
	data[offOptions] = options
	binary.BigEndian.PutUint16(data[offUniverse:], universe)
	data[offStartCode] = startCode
	copy(data[offData:], slots)
	return data
}

func TestParsePacket_Valid(t *testing.T) {
	slots := []byte{255, 128, 0, 64}
	packet := buildPacket(1, "test-console", 0, 0, slots)

	frame, err := ParsePacket(packet)
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}

	if frame.Universe != 1 {
		t.Errorf("Universe = %d, want 1", frame.Universe)
	}
	if frame.Priority != 100 {
		t.Errorf("Priority = %d, want 100", frame.Priority)
	}
	if frame.Sequence != 7 {
		t.Errorf("Sequence = %d, want 7", frame.Sequence)
	}
	if frame.SourceName != "test-console" {
		t.Errorf("SourceName = %q, want test-console", frame.SourceName)
	}
	if len(frame.Data) != len(slots) {
		t.Fatalf("len(Data) = %d, want %d", len(frame.Data), len(slots))
	}
	for i, v := range slots {
		if frame.Data[i] != v {
			t.Errorf("Data[%d] = %d, want %d", i, frame.Data[i], v)
		}
	}
}

func TestParsePacket_StartCodeOnly(t *testing.T) {
	// A header plus the start code and no slots is the minimum.
	packet := buildPacket(1, "test-console", 0, 0, nil)
	if len(packet) != minPacketSize {
		t.Fatalf("len(packet) = %d, want %d", len(packet), minPacketSize)
	}

	frame, err := ParsePacket(packet)
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}
	if len(frame.Data) != 0 {
		t.Errorf("len(Data) = %d, want 0", len(frame.Data))
	}
}

func TestParsePacket_DataIsCopied(t *testing.T) {
	packet := buildPacket(1, "src", 0, 0, []byte{10, 20})

	frame, err := ParsePacket(packet)
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}

	// Mutating the datagram buffer must not change the frame.
	packet[offData] = 99
	if frame.Data[0] != 10 {
		t.Error("frame data aliases the receive buffer")
	}
}

func TestParsePacket_CapsAt512Slots(t *testing.T) {
	packet := buildPacket(1, "src", 0, 0, make([]byte, 600))

	frame, err := ParsePacket(packet)
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}
	if len(frame.Data) != maxSlots {
		t.Errorf("len(Data) = %d, want %d", len(frame.Data), maxSlots)
	}
}

func TestParsePacket_Flags(t *testing.T) {
	preview, err := ParsePacket(buildPacket(1, "src", optPreviewData, 0, []byte{1}))
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}
	if !preview.Preview {
		t.Error("Preview flag not decoded")
	}

	term, err := ParsePacket(buildPacket(1, "src", optStreamTerminated, 0, []byte{1}))
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}
	if !term.Terminated {
		t.Error("Terminated flag not decoded")
	}
}

func TestParsePacket_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "short packet",
			data:    make([]byte, minPacketSize-1),
			wantErr: ErrShortPacket,
		},
		{
			name: "bad preamble",
			data: func() []byte {
				p := buildPacket(1, "src", 0, 0, []byte{1})
				binary.BigEndian.PutUint16(p[offPreamble:], 0xFFFF)
				return p
			}(),
			wantErr: ErrNotE131,
		},
		{
			name: "bad ACN identifier",
			data: func() []byte {
				p := buildPacket(1, "src", 0, 0, []byte{1})
				p[offACNID] = 'X'
				return p
			}(),
			wantErr: ErrNotE131,
		},
		{
			name:    "alternate start code",
			data:    buildPacket(1, "src", 0, 0xCC, []byte{1}),
			wantErr: ErrBadStartCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePacket(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParsePacket() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMulticastGroup(t *testing.T) {
	tests := []struct {
		universe uint16
		want     string
	}{
		{1, "239.255.0.1"},
		{256, "239.255.1.0"},
		{257, "239.255.1.1"},
		{63999, "239.255.249.255"},
	}

	for _, tt := range tests {
		if got := MulticastGroup(tt.universe); got != tt.want {
			t.Errorf("MulticastGroup(%d) = %q, want %q", tt.universe, got, tt.want)
		}
	}
}
