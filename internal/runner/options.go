package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/arp"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/dot11"
	"github.com/projectdiscovery/netsweep/pkg/version"
	envutil "github.com/projectdiscovery/utils/env"
	fileutil "github.com/projectdiscovery/utils/file"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

var au *aurora.Aurora

var (
	InterfaceEnv = envutil.GetEnvOrDefault("NETSWEEP_INTERFACE", "")
	ProberEnv    = envutil.GetEnvOrDefault("NETSWEEP_PROBER", ProberUDP)
	BatchSizeEnv = envutil.GetEnvOrDefault("NETSWEEP_BATCH_SIZE", "")
	WaitEnv      = envutil.GetEnvOrDefault("NETSWEEP_WAIT", "")
)

// Supported probers
const (
	ProberUDP  = "udp"
	ProberICMP = "icmp"
	ProberPcap = "pcap"
)

var supportedProbers = []string{ProberUDP, ProberICMP, ProberPcap}

// Options contains the configuration options for a sweep and sniff session.
type Options struct {
	Interface string
	Target    string
	PcapFile  string

	NoSweep   bool
	BatchSize int
	Wait      time.Duration
	Prober    string

	Sniff          bool
	SniffInterface string
	SniffDuration  time.Duration
	SniffBuffer    int
	MaxFrames      int

	Output  string
	Silent  bool
	Verbose bool
	NoColor bool
	Version bool
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`netsweep discovers hosts on the local subnet with a batched ARP sweep and classifies captured 802.11 frames`)

	defaultBatchSize := arp.DefaultBatchSize
	if val, err := strconv.Atoi(BatchSizeEnv); err == nil && val > 0 {
		defaultBatchSize = val
	}
	defaultWait := arp.DefaultQuiescence
	if val, err := time.ParseDuration(WaitEnv); err == nil && val > 0 {
		defaultWait = val
	}

	flagSet.CreateGroup("input", "Input",
		flagSet.StringVarP(&options.Interface, "interface", "i", InterfaceEnv, "network interface to sweep (default: every active interface)"),
		flagSet.StringVarP(&options.Target, "target", "t", "", "address and prefix to sweep instead of the interface configuration (e.g. 192.168.1.10/24)"),
		flagSet.StringVar(&options.PcapFile, "pcap-file", "", "classify frames from a pcap file instead of a live capture"),
	)

	flagSet.CreateGroup("sweep", "Sweep",
		flagSet.BoolVarP(&options.NoSweep, "no-sweep", "ns", false, "skip the subnet sweep"),
		flagSet.IntVarP(&options.BatchSize, "batch-size", "bs", defaultBatchSize, "number of addresses probed per batch"),
		flagSet.DurationVarP(&options.Wait, "wait", "w", defaultWait, "time to wait for replies after each batch"),
		flagSet.StringVar(&options.Prober, "prober", ProberEnv, "resolution probe to use (udp, icmp, pcap)"),
	)

	flagSet.CreateGroup("sniff", "Sniff",
		flagSet.BoolVar(&options.Sniff, "sniff", false, "capture and classify 802.11 frames"),
		flagSet.StringVarP(&options.SniffInterface, "sniff-interface", "si", "", "monitor mode interface to capture on (default: -interface)"),
		flagSet.DurationVarP(&options.SniffDuration, "sniff-duration", "sd", 30*time.Second, "duration of a live capture"),
		flagSet.IntVar(&options.SniffBuffer, "sniff-buffer", dot11.DefaultQueueSize, "number of captured frames queued for classification"),
		flagSet.IntVar(&options.MaxFrames, "max-frames", dot11.DefaultMaxFrames, "maximum number of classified frames kept"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.StringVarP(&options.Output, "jsonl", "o", "", "file to write results as json lines"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only results in output"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	// configure aurora for logging
	au = aurora.New(aurora.WithColors(true))

	if verbose := os.Getenv("NETSWEEP_VERBOSE"); (verbose == "true" || verbose == "1") && !options.Verbose {
		options.Verbose = true
	}

	options.configureOutput()

	showBanner()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if err := options.validate(); err != nil {
		gologger.Fatal().Msgf("Program exiting: %s\n", err)
	}

	return options
}

// validate checks option combinations
func (options *Options) validate() error {
	options.Prober = strings.ToLower(options.Prober)
	if !sliceutil.Contains(supportedProbers, options.Prober) {
		return fmt.Errorf("prober must be one of %s", strings.Join(supportedProbers, ", "))
	}
	if options.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}
	if options.Wait <= 0 {
		return errors.New("wait must be positive")
	}
	if options.PcapFile != "" {
		if !fileutil.FileExists(options.PcapFile) {
			return fmt.Errorf("pcap file %s does not exist", options.PcapFile)
		}
		options.Sniff = true
	}
	if options.NoSweep && !options.Sniff {
		return errors.New("nothing to do: sweep disabled and sniffing not requested")
	}
	if options.Sniff && options.PcapFile == "" && options.SniffInterface == "" && options.Interface == "" {
		return errors.New("live capture needs -sniff-interface or -interface")
	}
	return nil
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	// If the user desires verbose output, show verbose output
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
		au = aurora.New(aurora.WithColors(false))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}
