package dot11

import (
	"errors"
	"testing"
)

// header builds a 24 byte header with distinct addresses
func header(frameType, subtype, flags uint8) []byte {
	h := make([]byte, 24)
	h[0] = frameType<<2 | subtype<<4
	h[1] = flags
	for i := 0; i < 6; i++ {
		h[4+i] = 0xd0 + byte(i)
		h[10+i] = 0x50 + byte(i)
		h[16+i] = 0xb0 + byte(i)
	}
	// sequence number 291 (0x123), fragment 0
	h[22] = 0x30
	h[23] = 0x12
	return h
}

// beacon builds a beacon with the fixed parameters and optional trailing elements
func beacon(ssid string, extra ...byte) []byte {
	frame := header(TypeManagement, SubtypeBeacon, 0)
	frame = append(frame,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, // timestamp
		0x64, 0x00, // interval 100 TU
		0x11, 0x04, // capability: ESS, privacy, short slot
	)
	frame = append(frame, 0x00, byte(len(ssid)))
	frame = append(frame, ssid...)
	return append(frame, extra...)
}

func dataFrame(subtype uint8, etherType [2]byte, size int) []byte {
	frame := header(TypeData, subtype, FlagToDS)
	// LLC/SNAP header
	frame = append(frame, 0xaa, 0xaa, 0x03, 0x00, 0x00, 0x00, etherType[0], etherType[1])
	for len(frame) < size {
		frame = append(frame, 0x00)
	}
	return frame[:size]
}

func TestClassifyRejectsShortFrames(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		length int
	}{
		{name: "20 byte frame", data: make([]byte, 20), length: 20},
		{name: "empty frame", data: nil, length: 0},
		{name: "length shorter than buffer", data: make([]byte, 64), length: 23},
		{name: "length longer than buffer", data: make([]byte, 20), length: 100},
		{name: "negative length", data: make([]byte, 30), length: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Classify(tt.data, tt.length)
			if !errors.Is(err, ErrFrameTooShort) {
				t.Errorf("Classify() error = %v, want ErrFrameTooShort", err)
			}
			if frame != nil {
				t.Error("Classify() returned a record for a short frame")
			}
		})
	}
}

func TestClassifyHeader(t *testing.T) {
	data := header(TypeManagement, SubtypeBeacon, FlagFromDS|FlagProtected)
	frame, err := Classify(data, len(data))
	if err != nil {
		t.Fatal(err)
	}

	if frame.Version != 0 || frame.Type != TypeManagement || frame.Subtype != SubtypeBeacon {
		t.Errorf("version/type/subtype = %d/%d/%d", frame.Version, frame.Type, frame.Subtype)
	}
	if frame.Destination.String() != "d0:d1:d2:d3:d4:d5" {
		t.Errorf("Destination = %s", frame.Destination)
	}
	if frame.Source.String() != "50:51:52:53:54:55" {
		t.Errorf("Source = %s", frame.Source)
	}
	if frame.BSSID.String() != "b0:b1:b2:b3:b4:b5" {
		t.Errorf("BSSID = %s", frame.BSSID)
	}
	if frame.SequenceNumber != 0x123 {
		t.Errorf("SequenceNumber = %#x, want 0x123", frame.SequenceNumber)
	}
	if !frame.FromDS() || frame.ToDS() || !frame.Protected() {
		t.Errorf("flags = %#x", frame.Flags)
	}

	// addresses are copies, not views into the capture buffer
	data[4] = 0xff
	if frame.Destination[0] != 0xd0 {
		t.Error("Destination aliases the input buffer")
	}
}

func TestClassifyFrameControlBits(t *testing.T) {
	tests := []struct {
		fc          [2]byte
		wantVersion uint8
		wantType    uint8
		wantSubtype uint8
	}{
		{fc: [2]byte{0x80, 0x00}, wantVersion: 0, wantType: TypeManagement, wantSubtype: SubtypeBeacon},
		{fc: [2]byte{0x40, 0x00}, wantVersion: 0, wantType: TypeManagement, wantSubtype: SubtypeProbeRequest},
		{fc: [2]byte{0x88, 0x01}, wantVersion: 0, wantType: TypeData, wantSubtype: SubtypeQoSData},
		{fc: [2]byte{0xd4, 0x00}, wantVersion: 0, wantType: TypeControl, wantSubtype: 13},
		{fc: [2]byte{0xff, 0x00}, wantVersion: 3, wantType: TypeExtension, wantSubtype: 15},
	}

	for _, tt := range tests {
		data := make([]byte, 24)
		data[0], data[1] = tt.fc[0], tt.fc[1]
		frame, err := Classify(data, len(data))
		if err != nil {
			t.Fatal(err)
		}
		if frame.Version != tt.wantVersion || frame.Type != tt.wantType || frame.Subtype != tt.wantSubtype {
			t.Errorf("fc %#x %#x: got %d/%d/%d, want %d/%d/%d", tt.fc[0], tt.fc[1],
				frame.Version, frame.Type, frame.Subtype, tt.wantVersion, tt.wantType, tt.wantSubtype)
		}
	}
}

func TestClassifyBeacon(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		wantSSID    string
		wantFixed   bool
		wantMissing []string
		validate    func(t *testing.T, f *Frame)
	}{
		{
			name:      "ssid of four bytes after the fixed part",
			data:      beacon("home"),
			wantSSID:  "home",
			wantFixed: true,
			validate: func(t *testing.T, f *Frame) {
				if *f.Timestamp != 0x0807060504030201 {
					t.Errorf("Timestamp = %#x", *f.Timestamp)
				}
				if *f.BeaconInterval != 100 {
					t.Errorf("BeaconInterval = %d", *f.BeaconInterval)
				}
				if *f.Capability != 0x0411 {
					t.Errorf("Capability = %#x", *f.Capability)
				}
				if !f.Privacy {
					t.Error("Privacy not set")
				}
			},
		},
		{
			name:        "fixed part only",
			data:        beacon("home")[:36],
			wantFixed:   true,
			wantMissing: []string{FieldSSID},
		},
		{
			name:        "truncated fixed part",
			data:        beacon("home")[:30],
			wantMissing: []string{FieldFixedParameters, FieldSSID},
		},
		{
			name:      "hidden ssid",
			data:      beacon(""),
			wantFixed: true,
		},
		{
			name:        "ssid longer than the frame",
			data:        beacon("home")[:40],
			wantFixed:   true,
			wantMissing: []string{FieldSSID},
		},
		{
			name:      "rsn element",
			data:      beacon("corp", 0x30, 0x02, 0x01, 0x00),
			wantSSID:  "corp",
			wantFixed: true,
			validate: func(t *testing.T, f *Frame) {
				if !f.RSN || f.WPA {
					t.Errorf("RSN/WPA = %v/%v", f.RSN, f.WPA)
				}
			},
		},
		{
			name:      "wpa vendor element",
			data:      beacon("old", 0xdd, 0x06, 0x00, 0x50, 0xf2, 0x01, 0x01, 0x00),
			wantSSID:  "old",
			wantFixed: true,
			validate: func(t *testing.T, f *Frame) {
				if !f.WPA || f.RSN {
					t.Errorf("RSN/WPA = %v/%v", f.RSN, f.WPA)
				}
			},
		},
		{
			name:      "truncated element is not read",
			data:      beacon("cafe", 0x30, 0x10, 0x01),
			wantSSID:  "cafe",
			wantFixed: true,
			validate: func(t *testing.T, f *Frame) {
				if f.RSN {
					t.Error("RSN set from a truncated element")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Classify(tt.data, len(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			if !frame.IsBeacon() {
				t.Fatalf("IsBeacon() = false")
			}
			if frame.SSID != tt.wantSSID {
				t.Errorf("SSID = %q, want %q", frame.SSID, tt.wantSSID)
			}
			if (frame.Timestamp != nil) != tt.wantFixed {
				t.Errorf("fixed parameters decoded = %v, want %v", frame.Timestamp != nil, tt.wantFixed)
			}
			if len(frame.Missing) != len(tt.wantMissing) {
				t.Fatalf("Missing = %v, want %v", frame.Missing, tt.wantMissing)
			}
			for i := range tt.wantMissing {
				if frame.Missing[i] != tt.wantMissing[i] {
					t.Errorf("Missing[%d] = %s, want %s", i, frame.Missing[i], tt.wantMissing[i])
				}
			}
			if len(tt.wantMissing) > 0 && !errors.Is(frame.Err(), ErrFieldOutOfBounds) {
				t.Errorf("Err() = %v, want ErrFieldOutOfBounds", frame.Err())
			}
			if tt.validate != nil {
				tt.validate(t, frame)
			}
		})
	}
}

func TestClassifyHonoursLength(t *testing.T) {
	// the buffer holds a full ssid but the declared length cuts it off
	data := beacon("home")
	frame, err := Classify(data, 39)
	if err != nil {
		t.Fatal(err)
	}
	if frame.SSID != "" {
		t.Errorf("SSID = %q, decoded past the declared length", frame.SSID)
	}
}

func TestClassifyProbeFrames(t *testing.T) {
	probeResponse := beacon("guest")
	probeResponse[0] = SubtypeProbeResponse << 4

	probeRequest := header(TypeManagement, SubtypeProbeRequest, 0)
	probeRequest = append(probeRequest, 0x00, 0x03, 'l', 'a', 'b')

	tests := []struct {
		name      string
		data      []byte
		wantSSID  string
		wantFixed bool
	}{
		{name: "probe response", data: probeResponse, wantSSID: "guest", wantFixed: true},
		{name: "probe request", data: probeRequest, wantSSID: "lab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Classify(tt.data, len(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			if frame.SSID != tt.wantSSID {
				t.Errorf("SSID = %q, want %q", frame.SSID, tt.wantSSID)
			}
			if (frame.Timestamp != nil) != tt.wantFixed {
				t.Errorf("fixed parameters decoded = %v, want %v", frame.Timestamp != nil, tt.wantFixed)
			}
		})
	}
}

func TestClassifyKeyExchange(t *testing.T) {
	eapol := [2]byte{0x88, 0x8e}

	tests := []struct {
		name        string
		data        []byte
		want        bool
		wantMissing bool
	}{
		{name: "data frame carrying eapol", data: dataFrame(SubtypeData, eapol, 40), want: true},
		{name: "qos data frame carrying eapol", data: dataFrame(SubtypeQoSData, eapol, 40), want: true},
		{name: "first byte changed", data: dataFrame(SubtypeData, [2]byte{0x89, 0x8e}, 40), want: false},
		{name: "second byte changed", data: dataFrame(SubtypeData, [2]byte{0x88, 0x8f}, 40), want: false},
		{name: "ipv4 payload", data: dataFrame(SubtypeData, [2]byte{0x08, 0x00}, 40), want: false},
		{name: "34 bytes is too short", data: dataFrame(SubtypeData, eapol, 34), want: false, wantMissing: true},
		{name: "35 bytes is enough", data: dataFrame(SubtypeData, eapol, 35), want: true},
		{name: "null data subtype is ignored", data: dataFrame(4, eapol, 40), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Classify(tt.data, len(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			if frame.HasKeyExchange != tt.want {
				t.Errorf("HasKeyExchange = %v, want %v", frame.HasKeyExchange, tt.want)
			}
			if (frame.Err() != nil) != tt.wantMissing {
				t.Errorf("Err() = %v, want missing %v", frame.Err(), tt.wantMissing)
			}
		})
	}
}

func TestSubtypeName(t *testing.T) {
	tests := []struct {
		frameType uint8
		subtype   uint8
		want      string
	}{
		{TypeManagement, SubtypeBeacon, "beacon"},
		{TypeManagement, SubtypeDeauthentication, "deauthentication"},
		{TypeData, SubtypeQoSData, "qos-data"},
		{TypeControl, 11, "subtype-11"},
	}
	for _, tt := range tests {
		f := &Frame{Type: tt.frameType, Subtype: tt.subtype}
		if got := f.SubtypeName(); got != tt.want {
			t.Errorf("SubtypeName(%d, %d) = %s, want %s", tt.frameType, tt.subtype, got, tt.want)
		}
	}
}
