package arp

import (
	"context"
	"errors"
	"net"

	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/common"
)

var (
	// ErrOutOfCapacity is returned when the device store for a subnet cannot be allocated
	ErrOutOfCapacity = errors.New("not enough capacity for storing devices")
	// ErrProbeIssuance wraps failures to send a single resolution probe
	ErrProbeIssuance = errors.New("could not issue resolution probe")
)

// Prober sends a resolution probe for a target address. Probing is best effort:
// a nil error only means the probe left, not that anyone answered.
type Prober interface {
	Probe(ctx context.Context, target common.IPv4Address) error
}

// ResolutionCache answers whether an address has been resolved to a link address.
type ResolutionCache interface {
	Lookup(ctx context.Context, target common.IPv4Address) (net.HardwareAddr, bool, error)
}

// refresher is implemented by caches that memoize a snapshot and must drop it
// before a correlation pass
type refresher interface {
	Refresh()
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context, target common.IPv4Address) error

// Probe calls f(ctx, target)
func (f ProberFunc) Probe(ctx context.Context, target common.IPv4Address) error {
	return f(ctx, target)
}

// ResolutionCacheFunc adapts a function to the ResolutionCache interface
type ResolutionCacheFunc func(ctx context.Context, target common.IPv4Address) (net.HardwareAddr, bool, error)

// Lookup calls f(ctx, target)
func (f ResolutionCacheFunc) Lookup(ctx context.Context, target common.IPv4Address) (net.HardwareAddr, bool, error) {
	return f(ctx, target)
}
