package dot11

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/projectdiscovery/gologger"
)

const (
	// DefaultSnapLen covers a full 802.11 frame with radiotap header
	DefaultSnapLen = 2400
	// DefaultTimeout is the default timeout for packet reads (100ms for responsiveness)
	DefaultTimeout = 100 * time.Millisecond

	fcsLen = 4
)

// CaptureSource reads 802.11 frames from a monitor-mode interface or a pcap file
type CaptureSource struct {
	handle   *pcap.Handle
	linkType layers.LinkType
}

// OpenLive opens a capture on a monitor-mode interface. Monitor mode is
// requested but not required, some drivers only accept it from the OS.
func OpenLive(iface string) (*CaptureSource, error) {
	inactive, err := pcap.NewInactiveHandle(iface)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", iface, err)
	}
	defer inactive.CleanUp()

	_ = inactive.SetSnapLen(DefaultSnapLen)
	_ = inactive.SetPromisc(true)
	_ = inactive.SetTimeout(DefaultTimeout)
	if err := inactive.SetRFMon(true); err != nil {
		gologger.Verbose().Msgf("could not enable monitor mode on %s: %s", iface, err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("could not activate capture on %s: %w", iface, err)
	}
	return newCaptureSource(handle)
}

// OpenOffline reads frames from a pcap file
func OpenOffline(path string) (*CaptureSource, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	return newCaptureSource(handle)
}

func newCaptureSource(handle *pcap.Handle) (*CaptureSource, error) {
	linkType := handle.LinkType()
	switch linkType {
	case layers.LinkTypeIEEE802_11, layers.LinkTypeIEEE80211Radio:
	default:
		handle.Close()
		return nil, fmt.Errorf("unsupported link type %s, an 802.11 capture is required", linkType)
	}
	return &CaptureSource{handle: handle, linkType: linkType}, nil
}

// Deliver pushes every captured frame to sink until ctx is done or, for
// files, the capture ends
func (c *CaptureSource) Deliver(ctx context.Context, sink FrameSink) error {
	source := gopacket.NewPacketSource(c.handle, c.linkType)
	source.NoCopy = true
	packets := source.Packets()

	for {
		select {
		case <-ctx.Done():
			return nil
		case packet, ok := <-packets:
			if !ok {
				return nil
			}
			frame, ok := frameBytes(c.linkType, packet)
			if !ok {
				continue
			}
			sink.OnFrameCaptured(frame, len(frame), CaptureTypeOf(frame))
		}
	}
}

// Close releases the capture handle
func (c *CaptureSource) Close() {
	c.handle.Close()
}

// frameBytes strips the link-layer encapsulation and trailing FCS. Packets
// whose radiotap header failed to decode are skipped.
func frameBytes(linkType layers.LinkType, packet gopacket.Packet) ([]byte, bool) {
	if linkType != layers.LinkTypeIEEE80211Radio {
		return packet.Data(), true
	}

	radiotap, ok := packet.Layer(layers.LayerTypeRadioTap).(*layers.RadioTap)
	if !ok {
		if failure := packet.ErrorLayer(); failure != nil {
			gologger.Debug().Msgf("skipping capture with bad radiotap header: %s", failure.Error())
		}
		return nil, false
	}
	// the decoded payload always ends with an FCS, appended when the driver omitted it
	frame := radiotap.LayerPayload()
	if len(frame) < fcsLen {
		return nil, false
	}
	return frame[:len(frame)-fcsLen], true
}
