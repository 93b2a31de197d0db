package arp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/common"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/store"
	syncutil "github.com/projectdiscovery/utils/sync"
	"github.com/rs/xid"
)

const (
	// DefaultBatchSize is the number of targets probed per iteration
	DefaultBatchSize = 5
	// DefaultQuiescence is how long the engine waits for replies after a batch
	DefaultQuiescence = 5 * time.Second
	// DefaultMaxStoreCapacity is the largest subnet the engine accepts
	DefaultMaxStoreCapacity uint32 = 1 << 20
)

// ErrAlreadyRun is returned when Run is called more than once on an Engine
var ErrAlreadyRun = errors.New("sweep already run")

// State is a phase of the sweep
type State int32

const (
	StateInit State = iota
	StateEnumerating
	StateBatchProbing
	StateAwaitingResponses
	StateCorrelating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateEnumerating:
		return "enumerating"
	case StateBatchProbing:
		return "batch-probing"
	case StateAwaitingResponses:
		return "awaiting-responses"
	case StateCorrelating:
		return "correlating"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// WaitFunc blocks for d or until ctx is done
type WaitFunc func(ctx context.Context, d time.Duration) error

// Config holds configuration for a sweep
type Config struct {
	// Targets probed per iteration
	BatchSize int // Default: 5

	// Time given to replies to land in the resolution cache
	Quiescence time.Duration // Default: 5s

	// Subnets with more host addresses than this are refused
	MaxStoreCapacity uint32 // Default: 1<<20

	// Wait implements the quiescence window (tests inject a fake)
	Wait WaitFunc

	// OnDevice is called once for every newly stored device
	OnDevice func(Device)

	// OnSummary is called when Run returns, including on cancellation
	OnSummary func(*Summary)
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BatchSize:        DefaultBatchSize,
		Quiescence:       DefaultQuiescence,
		MaxStoreCapacity: DefaultMaxStoreCapacity,
		Wait:             sleepContext,
	}
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Quiescence <= 0 {
		c.Quiescence = DefaultQuiescence
	}
	if c.MaxStoreCapacity == 0 {
		c.MaxStoreCapacity = DefaultMaxStoreCapacity
	}
	if c.Wait == nil {
		c.Wait = sleepContext
	}
}

// Device is a host that answered address resolution during a sweep
type Device struct {
	IP             common.IPv4Address
	MAC            net.HardwareAddr
	FirstSeenOrder int
}

// Summary describes a finished (or cancelled) sweep
type Summary struct {
	SessionID        string
	Subnet           common.SubnetRange
	AddressesScanned uint32
	DevicesFound     int
	ProbeFailures    int
	Batches          int
	Duration         time.Duration
	Cancelled        bool
}

// Engine sweeps the subnet of one interface in small batches
type Engine struct {
	iface   common.InterfaceConfig
	subnet  common.SubnetRange
	prober  Prober
	cache   ResolutionCache
	config  Config
	devices atomic.Pointer[store.Store[Device]]
	state   atomic.Int32
	ran     atomic.Bool
}

// NewEngine validates the interface configuration and prepares a sweep.
// A nil config uses DefaultConfig.
func NewEngine(iface common.InterfaceConfig, prober Prober, cache ResolutionCache, config *Config) (*Engine, error) {
	if prober == nil || cache == nil {
		return nil, errors.New("prober and resolution cache are required")
	}
	subnet, err := iface.Subnet()
	if err != nil {
		return nil, fmt.Errorf("could not compute subnet of %s: %w", iface.Name, err)
	}

	if config == nil {
		config = DefaultConfig()
	}
	e := &Engine{
		iface:  iface,
		subnet: subnet,
		prober: prober,
		cache:  cache,
		config: *config,
	}
	e.config.applyDefaults()
	return e, nil
}

// Subnet returns the subnet being swept
func (e *Engine) Subnet() common.SubnetRange {
	return e.subnet
}

// State returns the current phase
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	gologger.Debug().Msgf("sweep %s: %s", e.subnet, s)
}

// Devices returns the devices stored so far. It is safe to call while Run is in progress.
func (e *Engine) Devices() []Device {
	devices := e.devices.Load()
	if devices == nil {
		return nil
	}
	return devices.Snapshot()
}

// Run sweeps the subnet once. On cancellation the returned summary covers the
// batches completed so far and the context error is returned with it.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	if !e.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}

	start := time.Now()
	summary := &Summary{
		SessionID: xid.New().String(),
		Subnet:    e.subnet,
	}
	defer func() {
		summary.Duration = time.Since(start)
		e.setState(StateDone)
		if e.config.OnSummary != nil {
			e.config.OnSummary(summary)
		}
	}()

	e.setState(StateInit)
	maxDevices := e.subnet.MaxDevices()
	if maxDevices > e.config.MaxStoreCapacity {
		return summary, fmt.Errorf("%w: %s has %d host addresses, limit is %d", ErrOutOfCapacity, e.subnet, maxDevices, e.config.MaxStoreCapacity)
	}
	devices := store.New[Device](int(maxDevices))
	e.devices.Store(devices)

	awg, err := syncutil.New(syncutil.WithSize(e.config.BatchSize))
	if err != nil {
		return summary, fmt.Errorf("failed to create adaptive waitgroup: %w", err)
	}

	cursor := e.subnet.Base
	last := e.subnet.Last()
	batch := make([]common.IPv4Address, 0, e.config.BatchSize)

	for {
		e.setState(StateEnumerating)
		batch = batch[:0]
		for len(batch) < e.config.BatchSize {
			next := common.Next(cursor)
			// the broadcast address is never probed
			if next == last || next == cursor {
				break
			}
			cursor = next
			batch = append(batch, cursor)
		}
		if len(batch) == 0 {
			break
		}
		summary.Batches++

		e.setState(StateBatchProbing)
		summary.ProbeFailures += e.probeBatch(ctx, awg, batch)
		summary.AddressesScanned += uint32(len(batch))
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			return summary, err
		}

		e.setState(StateAwaitingResponses)
		if err := e.config.Wait(ctx, e.config.Quiescence); err != nil {
			summary.Cancelled = true
			return summary, err
		}

		e.setState(StateCorrelating)
		if err := e.correlate(ctx, devices, batch, summary); err != nil {
			summary.Cancelled = true
			return summary, err
		}
	}

	gologger.Verbose().Msgf("sweep %s done: %d addresses scanned, %d devices found", e.subnet, summary.AddressesScanned, summary.DevicesFound)
	return summary, nil
}

// probeBatch issues one probe per target and returns the number of failures
func (e *Engine) probeBatch(ctx context.Context, awg *syncutil.AdaptiveWaitGroup, batch []common.IPv4Address) int {
	var failures atomic.Int32
	for _, target := range batch {
		awg.Add()
		go func(target common.IPv4Address) {
			defer awg.Done()
			if err := e.prober.Probe(ctx, target); err != nil {
				failures.Add(1)
				gologger.Verbose().Msgf("probe %s failed: %s", target, err)
			}
		}(target)
	}
	awg.Wait()
	return int(failures.Load())
}

// correlate stores every batch member the resolution cache knows about
func (e *Engine) correlate(ctx context.Context, devices *store.Store[Device], batch []common.IPv4Address, summary *Summary) error {
	if r, ok := e.cache.(refresher); ok {
		r.Refresh()
	}

	for _, target := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}

		mac, ok, err := e.cache.Lookup(ctx, target)
		if err != nil {
			gologger.Verbose().Msgf("lookup %s failed: %s", target, err)
			continue
		}
		if !ok || len(mac) != 6 {
			continue
		}

		device := Device{
			IP:             target,
			MAC:            append(net.HardwareAddr(nil), mac...),
			FirstSeenOrder: devices.Len(),
		}
		inserted, err := devices.InsertUnique(target.String(), device)
		if err != nil {
			gologger.Verbose().Msgf("could not store %s: %s", target, err)
			continue
		}
		if !inserted {
			continue
		}
		summary.DevicesFound++
		if e.config.OnDevice != nil {
			e.config.OnDevice(device)
		}
	}
	return nil
}

// sleepContext waits for d unless ctx is done first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
