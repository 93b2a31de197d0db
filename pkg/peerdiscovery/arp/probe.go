package arp

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/common"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	// DefaultProbePort is the discard port used by UDPProber
	DefaultProbePort = 9
	// DefaultProbeTimeout bounds a single probe write
	DefaultProbeTimeout = 50 * time.Millisecond
)

// UDPProber triggers kernel address resolution by sending a one byte datagram.
// The kernel must resolve the target before the datagram can leave, which
// populates the OS ARP table whether or not anything listens on the port.
type UDPProber struct {
	port    int
	timeout time.Duration
}

// NewUDPProber creates a UDPProber targeting port (DefaultProbePort if zero)
func NewUDPProber(port int) *UDPProber {
	if port <= 0 {
		port = DefaultProbePort
	}
	return &UDPProber{port: port, timeout: DefaultProbeTimeout}
}

// Probe sends a datagram to target
func (p *UDPProber) Probe(ctx context.Context, target common.IPv4Address) error {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "udp4", net.JoinHostPort(target.String(), strconv.Itoa(p.port)))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProbeIssuance, target, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(p.timeout))
	if _, err := conn.Write([]byte{0}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProbeIssuance, target, err)
	}
	return nil
}

// ICMPProber triggers kernel address resolution with an ICMP echo request.
// Raw ICMP sockets require root/admin privileges on most systems.
type ICMPProber struct {
	conn net.PacketConn
	id   int
	seq  atomic.Uint32
}

// NewICMPProber opens the shared ICMP socket used for every probe
func NewICMPProber() (*ICMPProber, error) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("failed to create ICMP connection: %w", err)
	}
	return &ICMPProber{conn: conn, id: os.Getpid() & 0xffff}, nil
}

// Probe sends an echo request to target. Replies are not read.
func (p *ICMPProber) Probe(ctx context.Context, target common.IPv4Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  int(p.seq.Add(1) & 0xffff),
			Data: []byte("netsweep"),
		},
	}
	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("failed to marshal ICMP message: %w", err)
	}

	if _, err := p.conn.WriteTo(msgBytes, &net.IPAddr{IP: target.IP()}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProbeIssuance, target, err)
	}
	return nil
}

// Close releases the ICMP socket
func (p *ICMPProber) Close() error {
	return p.conn.Close()
}
