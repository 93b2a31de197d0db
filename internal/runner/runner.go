package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/mapcidr"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/arp"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/common"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/dot11"
	"github.com/projectdiscovery/netsweep/pkg/report"
	"golang.org/x/sync/errgroup"
)

// Runner contains the internal logic of the program
type Runner struct {
	options *Options
	writer  report.Writer
	output  *os.File
}

// NewRunner instance
func NewRunner(options *Options) (*Runner, error) {
	r := &Runner{options: options}

	writers := report.Multi{report.NewConsole(!options.NoColor)}
	if options.Output != "" {
		f, err := os.Create(options.Output)
		if err != nil {
			return nil, fmt.Errorf("could not create output file %s: %w", options.Output, err)
		}
		r.output = f
		writers = append(writers, report.NewJSONLines(f, 0, 0))
	}
	r.writer = writers
	return r, nil
}

// Run executes the sweep and the sniffer concurrently until both are done or ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	defer r.close()

	var g errgroup.Group

	if !r.options.NoSweep {
		g.Go(func() error {
			if err := r.sweep(ctx); err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			return nil
		})
	}

	if r.options.Sniff {
		g.Go(func() error {
			if err := r.sniff(ctx); err != nil {
				return fmt.Errorf("sniff: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (r *Runner) close() {
	if err := r.writer.Close(); err != nil {
		gologger.Warning().Msgf("Could not flush results: %s", err)
	}
	if r.output != nil {
		_ = r.output.Close()
	}
}

// sweep runs one batched ARP sweep over the selected interface, or over every
// local interface when neither -interface nor -target is set
func (r *Runner) sweep(ctx context.Context) error {
	config := &arp.Config{
		BatchSize:  r.options.BatchSize,
		Quiescence: r.options.Wait,
		OnDevice: func(device arp.Device) {
			if err := r.writer.WriteDevice(device); err != nil {
				gologger.Warning().Msgf("Could not write device %s: %s", device.IP, err)
			}
		},
		OnSummary: func(summary *arp.Summary) {
			if err := r.writer.WriteSummary(summary); err != nil {
				gologger.Warning().Msgf("Could not write summary: %s", err)
			}
		},
	}

	if r.options.Interface == "" && r.options.Target == "" {
		gologger.Info().Msgf("Sweeping every local interface (%d per batch, %s wait, %s prober)",
			r.options.BatchSize, r.options.Wait, r.options.Prober)
		peers, err := arp.DiscoverPeers(ctx, config, r.resolver)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		gologger.Info().Msgf("%d peers known after sweeping all interfaces", len(peers))
		return nil
	}

	iface, err := r.interfaceConfig()
	if err != nil {
		return err
	}

	prober, cache, cleanup, err := r.resolver(ctx, iface)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := arp.NewEngine(iface, prober, cache, config)
	if err != nil {
		return err
	}

	subnet := engine.Subnet()
	gologger.Info().Msgf("Sweeping %s on %s (%d addresses from %s, %d per batch, %s wait, %s prober)",
		subnet, iface.Name, subnet.MaxDevices(), subnet.First(), r.options.BatchSize, r.options.Wait, r.options.Prober)

	if _, err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// interfaceConfig resolves the interface to sweep, applying -target when set
func (r *Runner) interfaceConfig() (common.InterfaceConfig, error) {
	var iface common.InterfaceConfig
	if r.options.Interface != "" {
		cfg, err := common.LocalInterfaceConfig(r.options.Interface)
		if err != nil && r.options.Target == "" {
			return iface, err
		}
		iface = cfg
		iface.Name = r.options.Interface
	}

	if r.options.Target != "" {
		address, mask, err := parseTarget(r.options.Target)
		if err != nil {
			return iface, err
		}
		iface.Address = address
		iface.Mask = mask
		if iface.Name == "" {
			iface.Name = r.options.Target
		}
	}
	return iface, nil
}

// parseTarget reads an address/prefix pair, keeping the host part of the address
func parseTarget(target string) (common.IPv4Address, common.IPv4Address, error) {
	ip, ipNet, err := net.ParseCIDR(target)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid target %q: %w", target, err)
	}
	address, ok := common.FromIP(ip)
	if !ok {
		return 0, 0, fmt.Errorf("target %q is not IPv4", target)
	}
	mask, ok := common.FromMask(ipNet.Mask)
	if !ok {
		return 0, 0, fmt.Errorf("target %q has no IPv4 mask", target)
	}
	if common.IsNetworkOrBroadcast(ip, ipNet) {
		gologger.Verbose().Msgf("Target %s names the network or broadcast address, sweeping the whole subnet", target)
	}
	hosts := mapcidr.CountIPsInCIDR(false, false, ipNet)
	gologger.Verbose().Msgf("Target %s expands to %s host addresses", ipNet, hosts)
	return address, mask, nil
}

// resolver builds the prober and resolution cache selected by -prober
func (r *Runner) resolver(ctx context.Context, iface common.InterfaceConfig) (arp.Prober, arp.ResolutionCache, func(), error) {
	switch r.options.Prober {
	case ProberICMP:
		prober, err := arp.NewICMPProber()
		if err != nil {
			return nil, nil, nil, err
		}
		return prober, arp.NewSystemTable(0), func() { _ = prober.Close() }, nil
	case ProberPcap:
		resolver, err := arp.NewPcapResolver(iface, 0)
		if err != nil {
			return nil, nil, nil, err
		}
		listenCtx, cancel := context.WithCancel(ctx)
		go resolver.Listen(listenCtx)
		return resolver, resolver, func() {
			cancel()
			resolver.Close()
		}, nil
	default:
		return arp.NewUDPProber(0), arp.NewSystemTable(0), func() {}, nil
	}
}

// sniff classifies frames from a pcap file or a timed live capture
func (r *Runner) sniff(ctx context.Context) error {
	var (
		source *dot11.CaptureSource
		err    error
	)
	if r.options.PcapFile != "" {
		source, err = dot11.OpenOffline(r.options.PcapFile)
	} else {
		name := r.options.SniffInterface
		if name == "" {
			name = r.options.Interface
		}
		source, err = dot11.OpenLive(name)
		if err == nil {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.options.SniffDuration)
			defer cancel()
			gologger.Info().Msgf("Sniffing on %s for %s", name, r.options.SniffDuration)
		}
	}
	if err != nil {
		return err
	}
	defer source.Close()

	sniffer := dot11.NewSniffer(&dot11.Config{
		QueueSize: r.options.SniffBuffer,
		MaxFrames: r.options.MaxFrames,
		OnFrame: func(frame dot11.Frame) {
			if err := r.writer.WriteFrame(frame); err != nil {
				gologger.Warning().Msgf("Could not write frame: %s", err)
			}
		},
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- sniffer.Run(workerCtx)
	}()

	deliverErr := source.Deliver(ctx, sniffer)
	stopWorker()
	if err := <-workerDone; err != nil {
		return err
	}

	if err := r.writer.WriteStats(sniffer.Stats()); err != nil {
		gologger.Warning().Msgf("Could not write sniffer stats: %s", err)
	}
	return deliverErr
}
