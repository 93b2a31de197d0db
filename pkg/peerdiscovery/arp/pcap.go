package arp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/projectdiscovery/gcache"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/common"
)

const (
	// DefaultResolverCapacity mirrors the small resolution table of embedded stacks
	DefaultResolverCapacity = 10
	// DefaultResolverTTL is how long a resolved entry stays valid
	DefaultResolverTTL = 20 * time.Minute

	snapLen     = 1600
	readTimeout = 100 * time.Millisecond
)

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

type packetWriter interface {
	WritePacketData(data []byte) error
}

// PcapResolver sends raw ARP requests and keeps a bounded cache of the replies.
// It is both the Prober and the ResolutionCache of a sweep.
type PcapResolver struct {
	iface  common.InterfaceConfig
	subnet common.SubnetRange
	writer packetWriter
	handle *pcap.Handle
	cache  gcache.Cache[common.IPv4Address, net.HardwareAddr]
}

// NewPcapResolver opens a live capture on the interface. capacity bounds the
// number of resolved entries kept (DefaultResolverCapacity if zero).
func NewPcapResolver(iface common.InterfaceConfig, capacity int) (*PcapResolver, error) {
	if len(iface.HardwareAddr) != 6 {
		return nil, fmt.Errorf("interface %s has no ethernet address", iface.Name)
	}

	handle, err := pcap.OpenLive(iface.Name, snapLen, false, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("could not open capture on %s: %w", iface.Name, err)
	}
	if err := handle.SetBPFFilter("arp"); err != nil {
		handle.Close()
		return nil, fmt.Errorf("could not set arp filter: %w", err)
	}

	r, err := newPcapResolver(iface, handle, capacity)
	if err != nil {
		handle.Close()
		return nil, err
	}
	r.handle = handle
	return r, nil
}

func newPcapResolver(iface common.InterfaceConfig, writer packetWriter, capacity int) (*PcapResolver, error) {
	subnet, err := iface.Subnet()
	if err != nil {
		return nil, err
	}
	if capacity <= 0 {
		capacity = DefaultResolverCapacity
	}
	return &PcapResolver{
		iface:  iface,
		subnet: subnet,
		writer: writer,
		cache: gcache.New[common.IPv4Address, net.HardwareAddr](capacity).
			LRU().
			Expiration(DefaultResolverTTL).
			Build(),
	}, nil
}

// Listen reads ARP replies into the cache until ctx is done or the capture ends
func (r *PcapResolver) Listen(ctx context.Context) {
	if r.handle == nil {
		return
	}
	source := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	packets := source.Packets()
	for {
		select {
		case <-ctx.Done():
			return
		case packet, ok := <-packets:
			if !ok {
				return
			}
			r.handlePacket(packet)
		}
	}
}

// handlePacket stores the sender of an ARP reply belonging to the subnet
func (r *PcapResolver) handlePacket(packet gopacket.Packet) {
	arpLayer := packet.Layer(layers.LayerTypeARP)
	if arpLayer == nil {
		return
	}
	reply, ok := arpLayer.(*layers.ARP)
	if !ok || reply.Operation != layers.ARPReply {
		return
	}

	ip, ok := common.FromIP(net.IP(reply.SourceProtAddress))
	if !ok || !r.subnet.Contains(ip) || r.subnet.IsNetworkOrBroadcast(ip) {
		return
	}
	if len(reply.SourceHwAddress) != 6 {
		return
	}

	mac := make(net.HardwareAddr, 6)
	copy(mac, reply.SourceHwAddress)
	if err := r.cache.Set(ip, mac); err != nil {
		gologger.Debug().Msgf("could not cache %s: %s", ip, err)
	}
}

// Probe writes a broadcast ARP request for target
func (r *PcapResolver) Probe(ctx context.Context, target common.IPv4Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eth := layers.Ethernet{
		SrcMAC:       r.iface.HardwareAddr,
		DstMAC:       broadcastMAC,
		EthernetType: layers.EthernetTypeARP,
	}
	request := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   r.iface.HardwareAddr,
		SourceProtAddress: r.iface.Address.IP(),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    target.IP(),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, &request); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProbeIssuance, target, err)
	}
	if err := r.writer.WritePacketData(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProbeIssuance, target, err)
	}
	return nil
}

// Lookup returns the cached reply for target
func (r *PcapResolver) Lookup(ctx context.Context, target common.IPv4Address) (net.HardwareAddr, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if !r.cache.Has(target) {
		return nil, false, nil
	}
	mac, err := r.cache.Get(target)
	if err != nil {
		// evicted between Has and Get
		return nil, false, nil
	}
	return mac, true, nil
}

// Close stops the capture
func (r *PcapResolver) Close() {
	if r.handle != nil {
		r.handle.Close()
	}
}
