// Package report renders sweep and sniff results for the console or as JSON lines.
package report

import (
	"time"

	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/arp"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/dot11"
)

// Record kinds
const (
	KindDevice       = "device"
	KindFrame        = "frame"
	KindSweepSummary = "sweep-summary"
	KindSniffStats   = "sniff-stats"
)

// Writer receives results as they are produced
type Writer interface {
	WriteDevice(device arp.Device) error
	WriteFrame(frame dot11.Frame) error
	WriteSummary(summary *arp.Summary) error
	WriteStats(stats dot11.Stats) error
	Close() error
}

// DeviceRecord is the reported form of a discovered device
type DeviceRecord struct {
	Kind  string `json:"kind"`
	IP    string `json:"ip"`
	MAC   string `json:"mac"`
	Order int    `json:"order"`
}

// FrameRecord is the reported form of a classified frame
type FrameRecord struct {
	Kind           string   `json:"kind"`
	CaptureType    string   `json:"capture_type"`
	Type           string   `json:"type"`
	Subtype        string   `json:"subtype"`
	Version        uint8    `json:"version"`
	Flags          uint8    `json:"flags,omitempty"`
	Destination    string   `json:"destination"`
	Source         string   `json:"source"`
	BSSID          string   `json:"bssid"`
	SequenceNumber uint16   `json:"sequence_number"`
	Timestamp      *uint64  `json:"timestamp,omitempty"`
	BeaconInterval *uint16  `json:"beacon_interval,omitempty"`
	Capability     *uint16  `json:"capability,omitempty"`
	Privacy        bool     `json:"privacy,omitempty"`
	SSID           string   `json:"ssid,omitempty"`
	RSN            bool     `json:"rsn,omitempty"`
	WPA            bool     `json:"wpa,omitempty"`
	HasKeyExchange bool     `json:"has_key_exchange"`
	Missing        []string `json:"missing,omitempty"`
}

// SummaryRecord is the reported form of a sweep summary
type SummaryRecord struct {
	Kind             string `json:"kind"`
	SessionID        string `json:"session_id"`
	Subnet           string `json:"subnet"`
	AddressesScanned uint32 `json:"addresses_scanned"`
	DevicesFound     int    `json:"devices_found"`
	ProbeFailures    int    `json:"probe_failures"`
	Batches          int    `json:"batches"`
	DurationMs       int64  `json:"duration_ms"`
	Cancelled        bool   `json:"cancelled,omitempty"`
}

// StatsRecord is the reported form of sniffer counters
type StatsRecord struct {
	Kind       string `json:"kind"`
	Received   uint64 `json:"received"`
	Dropped    uint64 `json:"dropped"`
	Classified uint64 `json:"classified"`
	Rejected   uint64 `json:"rejected"`
	StoreFull  uint64 `json:"store_full"`
}

// NewDeviceRecord converts a device
func NewDeviceRecord(device arp.Device) DeviceRecord {
	return DeviceRecord{
		Kind:  KindDevice,
		IP:    device.IP.String(),
		MAC:   device.MAC.String(),
		Order: device.FirstSeenOrder,
	}
}

// NewFrameRecord converts a classified frame
func NewFrameRecord(frame dot11.Frame) FrameRecord {
	return FrameRecord{
		Kind:           KindFrame,
		CaptureType:    frame.CaptureType.String(),
		Type:           frame.TypeName(),
		Subtype:        frame.SubtypeName(),
		Version:        frame.Version,
		Flags:          frame.Flags,
		Destination:    frame.Destination.String(),
		Source:         frame.Source.String(),
		BSSID:          frame.BSSID.String(),
		SequenceNumber: frame.SequenceNumber,
		Timestamp:      frame.Timestamp,
		BeaconInterval: frame.BeaconInterval,
		Capability:     frame.Capability,
		Privacy:        frame.Privacy,
		SSID:           frame.SSID,
		RSN:            frame.RSN,
		WPA:            frame.WPA,
		HasKeyExchange: frame.HasKeyExchange,
		Missing:        frame.Missing,
	}
}

// NewSummaryRecord converts a sweep summary
func NewSummaryRecord(summary *arp.Summary) SummaryRecord {
	return SummaryRecord{
		Kind:             KindSweepSummary,
		SessionID:        summary.SessionID,
		Subnet:           summary.Subnet.String(),
		AddressesScanned: summary.AddressesScanned,
		DevicesFound:     summary.DevicesFound,
		ProbeFailures:    summary.ProbeFailures,
		Batches:          summary.Batches,
		DurationMs:       summary.Duration.Round(time.Millisecond).Milliseconds(),
		Cancelled:        summary.Cancelled,
	}
}

// NewStatsRecord converts sniffer counters
func NewStatsRecord(stats dot11.Stats) StatsRecord {
	return StatsRecord{
		Kind:       KindSniffStats,
		Received:   stats.Received,
		Dropped:    stats.Dropped,
		Classified: stats.Classified,
		Rejected:   stats.Rejected,
		StoreFull:  stats.StoreFull,
	}
}

// Multi fans every call out to several writers and returns the first error
type Multi []Writer

func (m Multi) WriteDevice(device arp.Device) error {
	return m.each(func(w Writer) error { return w.WriteDevice(device) })
}

func (m Multi) WriteFrame(frame dot11.Frame) error {
	return m.each(func(w Writer) error { return w.WriteFrame(frame) })
}

func (m Multi) WriteSummary(summary *arp.Summary) error {
	return m.each(func(w Writer) error { return w.WriteSummary(summary) })
}

func (m Multi) WriteStats(stats dot11.Stats) error {
	return m.each(func(w Writer) error { return w.WriteStats(stats) })
}

func (m Multi) Close() error {
	return m.each(func(w Writer) error { return w.Close() })
}

func (m Multi) each(fn func(Writer) error) error {
	var first error
	for _, w := range m {
		if err := fn(w); err != nil && first == nil {
			first = err
		}
	}
	return first
}
