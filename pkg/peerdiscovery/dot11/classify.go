package dot11

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/gopacket/layers"
)

var (
	// ErrFrameTooShort is returned for frames shorter than the address-bearing header
	ErrFrameTooShort = errors.New("frame too short")
	// ErrFieldOutOfBounds marks a partial decode, see Frame.Missing
	ErrFieldOutOfBounds = errors.New("field out of bounds")
)

// Frame types
const (
	TypeManagement uint8 = 0
	TypeControl    uint8 = 1
	TypeData       uint8 = 2
	TypeExtension  uint8 = 3
)

// Management subtypes
const (
	SubtypeAssociationRequest  uint8 = 0
	SubtypeAssociationResponse uint8 = 1
	SubtypeProbeRequest        uint8 = 4
	SubtypeProbeResponse       uint8 = 5
	SubtypeBeacon              uint8 = 8
	SubtypeDisassociation      uint8 = 10
	SubtypeAuthentication      uint8 = 11
	SubtypeDeauthentication    uint8 = 12
)

// Data subtypes carrying an LLC payload
const (
	SubtypeData    uint8 = 0
	SubtypeQoSData uint8 = 8
)

// Frame control flags (second byte)
const (
	FlagToDS      uint8 = 0x01
	FlagFromDS    uint8 = 0x02
	FlagMoreFrag  uint8 = 0x04
	FlagRetry     uint8 = 0x08
	FlagPowerMgmt uint8 = 0x10
	FlagMoreData  uint8 = 0x20
	FlagProtected uint8 = 0x40
	FlagOrder     uint8 = 0x80
)

// Names of field groups reported in Frame.Missing
const (
	FieldFixedParameters = "fixed-parameters"
	FieldSSID            = "ssid"
	FieldKeyExchange     = "key-exchange"
)

// Layout of the fields decoded by Classify
const (
	headerLen          = 24
	fixedParamsEnd     = 36
	ssidLenOffset      = 37
	ssidOffset         = 38
	probeReqSSIDLen    = 25
	probeReqSSIDOffset = 26
	llcEtherTypeOffset = 30
	llcMinLength       = 34

	capabilityPrivacy = 0x0010

	elementRSN    = 48
	elementVendor = 221
)

var wpaOUI = [3]byte{0x00, 0x50, 0xf2}

// Frame is the decoded field set of one captured 802.11 frame.
// Optional fields are nil (or empty) when the frame did not carry them.
type Frame struct {
	Version        uint8
	Type           uint8
	Subtype        uint8
	Flags          uint8
	Destination    net.HardwareAddr
	Source         net.HardwareAddr
	BSSID          net.HardwareAddr
	SequenceNumber uint16

	Timestamp      *uint64
	BeaconInterval *uint16
	Capability     *uint16
	Privacy        bool

	SSID string
	RSN  bool
	WPA  bool

	HasKeyExchange bool

	// Missing lists field groups that were expected but did not fit in the frame
	Missing []string

	CaptureType CaptureType
}

// Err reports a partial decode as ErrFieldOutOfBounds
func (f *Frame) Err() error {
	if len(f.Missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrFieldOutOfBounds, strings.Join(f.Missing, ", "))
}

// ToDS reports whether the frame is headed to the distribution system
func (f *Frame) ToDS() bool { return f.Flags&FlagToDS != 0 }

// FromDS reports whether the frame comes from the distribution system
func (f *Frame) FromDS() bool { return f.Flags&FlagFromDS != 0 }

// Protected reports whether the frame body is encrypted
func (f *Frame) Protected() bool { return f.Flags&FlagProtected != 0 }

// IsBeacon reports whether the frame is a management beacon
func (f *Frame) IsBeacon() bool {
	return f.Type == TypeManagement && f.Subtype == SubtypeBeacon
}

// TypeName returns a readable frame type
func (f *Frame) TypeName() string {
	switch f.Type {
	case TypeManagement:
		return "management"
	case TypeControl:
		return "control"
	case TypeData:
		return "data"
	}
	return "extension"
}

// SubtypeName returns a readable subtype for common management and data frames
func (f *Frame) SubtypeName() string {
	switch f.Type {
	case TypeManagement:
		switch f.Subtype {
		case SubtypeAssociationRequest:
			return "association-request"
		case SubtypeAssociationResponse:
			return "association-response"
		case SubtypeProbeRequest:
			return "probe-request"
		case SubtypeProbeResponse:
			return "probe-response"
		case SubtypeBeacon:
			return "beacon"
		case SubtypeDisassociation:
			return "disassociation"
		case SubtypeAuthentication:
			return "authentication"
		case SubtypeDeauthentication:
			return "deauthentication"
		}
	case TypeData:
		switch f.Subtype {
		case SubtypeData:
			return "data"
		case SubtypeQoSData:
			return "qos-data"
		}
	}
	return fmt.Sprintf("subtype-%d", f.Subtype)
}

// Classify decodes one captured frame. Only the first min(length, len(data))
// bytes are ever read. Frames shorter than the 24 byte header are rejected
// with ErrFrameTooShort; shorter than expected bodies yield a partial Frame
// whose Missing field names the skipped groups.
func Classify(data []byte, length int) (*Frame, error) {
	n := length
	if n > len(data) {
		n = len(data)
	}
	if n < headerLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, max(n, 0))
	}
	data = data[:n]

	fc := binary.LittleEndian.Uint16(data[0:2])
	frame := &Frame{
		Version:        uint8(fc & 0x3),
		Type:           uint8((fc >> 2) & 0x3),
		Subtype:        uint8((fc >> 4) & 0xf),
		Flags:          uint8(fc >> 8),
		Destination:    hardwareAddr(data[4:10]),
		Source:         hardwareAddr(data[10:16]),
		BSSID:          hardwareAddr(data[16:22]),
		SequenceNumber: binary.LittleEndian.Uint16(data[22:24]) >> 4,
	}

	switch frame.Type {
	case TypeManagement:
		classifyManagement(frame, data)
	case TypeData:
		classifyData(frame, data)
	}
	return frame, nil
}

func classifyManagement(frame *Frame, data []byte) {
	switch frame.Subtype {
	case SubtypeBeacon, SubtypeProbeResponse:
		if len(data) >= fixedParamsEnd {
			var timestamp uint64
			for i := 7; i >= 0; i-- {
				timestamp = timestamp<<8 | uint64(data[headerLen+i])
			}
			interval := binary.LittleEndian.Uint16(data[32:34])
			capability := binary.LittleEndian.Uint16(data[34:36])
			frame.Timestamp = &timestamp
			frame.BeaconInterval = &interval
			frame.Capability = &capability
			frame.Privacy = capability&capabilityPrivacy != 0
		} else {
			frame.Missing = append(frame.Missing, FieldFixedParameters)
		}
		decodeSSID(frame, data, ssidLenOffset, ssidOffset)
	case SubtypeProbeRequest:
		decodeSSID(frame, data, probeReqSSIDLen, probeReqSSIDOffset)
	}
}

// decodeSSID reads the SSID element whose length byte is at lenOffset and,
// when it fits, scans the elements after it for security indicators
func decodeSSID(frame *Frame, data []byte, lenOffset, offset int) {
	if len(data) <= lenOffset {
		frame.Missing = append(frame.Missing, FieldSSID)
		return
	}
	ssidLen := int(data[lenOffset])
	if ssidLen == 0 {
		// hidden network
		scanElements(frame, data[offset:])
		return
	}
	if offset+ssidLen > len(data) {
		frame.Missing = append(frame.Missing, FieldSSID)
		return
	}
	frame.SSID = string(data[offset : offset+ssidLen])
	scanElements(frame, data[offset+ssidLen:])
}

// scanElements walks tagged elements (id, length, body) and flags RSN and WPA
func scanElements(frame *Frame, elements []byte) {
	for len(elements) >= 2 {
		id, size := elements[0], int(elements[1])
		if 2+size > len(elements) {
			return
		}
		body := elements[2 : 2+size]
		switch id {
		case elementRSN:
			frame.RSN = true
		case elementVendor:
			if len(body) >= 4 && [3]byte(body[:3]) == wpaOUI && body[3] == 1 {
				frame.WPA = true
			}
		}
		elements = elements[2+size:]
	}
}

func classifyData(frame *Frame, data []byte) {
	if frame.Subtype != SubtypeData && frame.Subtype != SubtypeQoSData {
		return
	}
	if len(data) <= llcMinLength {
		frame.Missing = append(frame.Missing, FieldKeyExchange)
		return
	}
	etherType := layers.EthernetType(binary.BigEndian.Uint16(data[llcEtherTypeOffset : llcEtherTypeOffset+2]))
	frame.HasKeyExchange = etherType == layers.EthernetTypeEAPOL
}

func hardwareAddr(b []byte) net.HardwareAddr {
	addr := make(net.HardwareAddr, len(b))
	copy(addr, b)
	return addr
}
