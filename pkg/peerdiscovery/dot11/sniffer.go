package dot11

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/store"
)

const (
	// DefaultQueueSize is the number of captured frames buffered for classification
	DefaultQueueSize = 1024
	// DefaultMaxFrames bounds the classified frames kept for one session
	DefaultMaxFrames = 4096
)

// ErrAlreadyRunning is returned when a second worker is started on a Sniffer
var ErrAlreadyRunning = errors.New("sniffer already running")

// CaptureType is the coarse category assigned by the capture path
type CaptureType uint8

const (
	CaptureManagement CaptureType = iota
	CaptureControl
	CaptureData
	CaptureMisc
)

func (c CaptureType) String() string {
	switch c {
	case CaptureManagement:
		return "mgmt"
	case CaptureControl:
		return "ctrl"
	case CaptureData:
		return "data"
	}
	return "misc"
}

// CaptureTypeOf derives the capture category from the first frame control byte
func CaptureTypeOf(data []byte) CaptureType {
	if len(data) == 0 {
		return CaptureMisc
	}
	switch (data[0] >> 2) & 0x3 {
	case TypeManagement:
		return CaptureManagement
	case TypeControl:
		return CaptureControl
	case TypeData:
		return CaptureData
	}
	return CaptureMisc
}

// CapturedFrame is a raw frame owned by the sniffer queue
type CapturedFrame struct {
	Data   []byte
	Length int
	Type   CaptureType
}

// FrameSink receives raw frames from a capture path
type FrameSink interface {
	OnFrameCaptured(data []byte, length int, captureType CaptureType) bool
}

// Config holds configuration for a Sniffer
type Config struct {
	QueueSize int // Default: 1024
	MaxFrames int // Default: 4096

	// OnFrame is called from the worker for every stored frame
	OnFrame func(Frame)
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		QueueSize: DefaultQueueSize,
		MaxFrames: DefaultMaxFrames,
	}
}

func (c *Config) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.MaxFrames <= 0 {
		c.MaxFrames = DefaultMaxFrames
	}
}

// Stats counts what happened to delivered frames
type Stats struct {
	Received   uint64 // accepted into the queue
	Dropped    uint64 // queue was full
	Classified uint64 // decoded and stored
	Rejected   uint64 // shorter than a header
	StoreFull  uint64 // decoded but the store had no room
}

// Sniffer decouples the capture path from classification. Delivery never
// blocks; a single worker classifies queued frames into an append-only store.
type Sniffer struct {
	config  Config
	queue   chan CapturedFrame
	frames  *store.Store[Frame]
	running atomic.Bool

	received   atomic.Uint64
	dropped    atomic.Uint64
	classified atomic.Uint64
	rejected   atomic.Uint64
	storeFull  atomic.Uint64
}

// NewSniffer creates a Sniffer. A nil config uses DefaultConfig.
func NewSniffer(config *Config) *Sniffer {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Sniffer{config: *config}
	s.config.applyDefaults()
	s.queue = make(chan CapturedFrame, s.config.QueueSize)
	s.frames = store.New[Frame](s.config.MaxFrames)
	return s
}

// OnFrameCaptured copies the frame and queues it for classification.
// It returns false when the queue is full and the frame was dropped.
func (s *Sniffer) OnFrameCaptured(data []byte, length int, captureType CaptureType) bool {
	n := min(max(length, 0), len(data))
	frame := CapturedFrame{
		Data:   append([]byte(nil), data[:n]...),
		Length: n,
		Type:   captureType,
	}

	select {
	case s.queue <- frame:
		s.received.Add(1)
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Run classifies queued frames until ctx is done, then drains what is
// already queued
func (s *Sniffer) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			s.drain()
			return nil
		case captured := <-s.queue:
			s.classify(captured)
		}
	}
}

func (s *Sniffer) drain() {
	for {
		select {
		case captured := <-s.queue:
			s.classify(captured)
		default:
			return
		}
	}
}

func (s *Sniffer) classify(captured CapturedFrame) {
	frame, err := Classify(captured.Data, captured.Length)
	if err != nil {
		s.rejected.Add(1)
		gologger.Debug().Msgf("dropping %s frame: %s", captured.Type, err)
		return
	}
	frame.CaptureType = captured.Type

	if err := s.frames.Append(*frame); err != nil {
		s.storeFull.Add(1)
		return
	}
	s.classified.Add(1)
	if s.config.OnFrame != nil {
		s.config.OnFrame(*frame)
	}
}

// Frames returns the classified frames in arrival order
func (s *Sniffer) Frames() []Frame {
	return s.frames.Snapshot()
}

// Stats returns the current counters
func (s *Sniffer) Stats() Stats {
	return Stats{
		Received:   s.received.Load(),
		Dropped:    s.dropped.Load(),
		Classified: s.classified.Load(),
		Rejected:   s.rejected.Load(),
		StoreFull:  s.storeFull.Load(),
	}
}
