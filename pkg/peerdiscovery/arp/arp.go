package arp

import (
	"context"
	"errors"
	"fmt"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/common"
	mapsutil "github.com/projectdiscovery/utils/maps"
)

// ResolverFunc builds the prober and resolution cache used to sweep one
// interface. The returned cleanup is called once the sweep is over.
type ResolverFunc func(ctx context.Context, iface common.InterfaceConfig) (Prober, ResolutionCache, func(), error)

// DiscoverPeers retrieves all ARP peers by first reading the local ARP table,
// then sweeping the subnet of every local interface one after another.
// A nil resolve sweeps with UDP probes against the system table.
func DiscoverPeers(ctx context.Context, config *Config, resolve ResolverFunc) ([]Peer, error) {
	interfaces, err := common.LocalInterfaceConfigs()
	if err != nil {
		return nil, fmt.Errorf("failed to get local networks: %w", err)
	}
	return discoverPeers(ctx, NewSystemTable(0), interfaces, resolve, config)
}

func discoverPeers(ctx context.Context, table *SystemTable, interfaces []common.InterfaceConfig, resolve ResolverFunc, config *Config) ([]Peer, error) {
	peers := mapsutil.NewSyncLockMap[string, *Peer]()

	if resolve == nil {
		resolve = func(_ context.Context, _ common.InterfaceConfig) (Prober, ResolutionCache, func(), error) {
			return NewUDPProber(0), table, func() {}, nil
		}
	}

	// Read local ARP table
	localPeers, err := table.Peers()
	if err != nil {
		gologger.Verbose().Msgf("could not read local ARP table: %s", err)
	}
	for _, peer := range localPeers {
		peerCopy := peer
		_ = peers.Set(peer.IP.String(), &peerCopy)
	}

	// Sweep interfaces sequentially (no hurry)
	var (
		swept int
		errs  []error
	)
	for _, iface := range interfaces {
		if ctx.Err() != nil {
			break
		}

		devices, err := sweepInterface(ctx, iface, resolve, config)
		for _, device := range devices {
			key := device.IP.String()
			if _, exists := peers.Get(key); !exists {
				_ = peers.Set(key, &Peer{IP: device.IP.IP(), MAC: device.MAC})
			}
		}

		switch {
		case err == nil:
			swept++
		case ctx.Err() != nil:
		case errors.Is(err, ErrOutOfCapacity), errors.Is(err, common.ErrDegenerateSubnet), errors.Is(err, common.ErrInvalidMask):
			gologger.Verbose().Msgf("skipping %s: %s", iface.Name, err)
		default:
			gologger.Warning().Msgf("could not sweep %s: %s", iface.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", iface.Name, err))
		}
	}
	if swept == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Convert map to slice
	var result []Peer
	_ = peers.Iterate(func(key string, peer *Peer) error {
		if peer != nil {
			result = append(result, *peer)
		}
		return nil
	})

	return result, nil
}

// sweepInterface runs one engine over iface. Devices found before a
// cancellation are returned with the context error.
func sweepInterface(ctx context.Context, iface common.InterfaceConfig, resolve ResolverFunc, config *Config) ([]Device, error) {
	prober, cache, cleanup, err := resolve(ctx, iface)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	engine, err := NewEngine(iface, prober, cache, config)
	if err != nil {
		return nil, err
	}
	_, err = engine.Run(ctx)
	return engine.Devices(), err
}
