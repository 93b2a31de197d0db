package report

import (
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/arp"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/dot11"
	"github.com/projectdiscovery/utils/batcher"
	envutil "github.com/projectdiscovery/utils/env"
)

var (
	// Default number of frames buffered before a write
	DefaultBatchSize = 100
	// Default flush interval for buffered frames
	DefaultFlushInterval = 2 * time.Second
)

// GetBatchSize returns the frame batch size from environment or default
func GetBatchSize() int {
	envVal := envutil.GetEnvOrDefault("NETSWEEP_JSONL_BATCH_SIZE", "")
	if envVal != "" {
		if size, err := strconv.Atoi(envVal); err == nil && size > 0 {
			return size
		}
	}
	return DefaultBatchSize
}

// JSONLines writes one JSON object per line. Frames arrive at capture rate
// and are batched; everything else is written immediately.
type JSONLines struct {
	mu      sync.Mutex
	encoder *json.Encoder
	frames  *batcher.Batcher[FrameRecord]
	closed  bool
}

// NewJSONLines creates a JSON lines writer over w
func NewJSONLines(w io.Writer, batchSize int, flushInterval time.Duration) *JSONLines {
	if batchSize <= 0 {
		batchSize = GetBatchSize()
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}

	j := &JSONLines{encoder: json.NewEncoder(w)}
	j.frames = batcher.New(
		batcher.WithMaxCapacity[FrameRecord](batchSize),
		batcher.WithFlushInterval[FrameRecord](flushInterval),
		batcher.WithFlushCallback[FrameRecord](func(records []FrameRecord) {
			j.mu.Lock()
			defer j.mu.Unlock()
			for _, record := range records {
				if err := j.encoder.Encode(record); err != nil {
					gologger.Error().Msgf("Could not write frame record: %s", err)
					return
				}
			}
		}),
	)

	// Start the batcher
	go j.frames.Run()

	return j
}

func (j *JSONLines) WriteDevice(device arp.Device) error {
	return j.encode(NewDeviceRecord(device))
}

func (j *JSONLines) WriteFrame(frame dot11.Frame) error {
	j.frames.Append(NewFrameRecord(frame))
	return nil
}

func (j *JSONLines) WriteSummary(summary *arp.Summary) error {
	return j.encode(NewSummaryRecord(summary))
}

func (j *JSONLines) WriteStats(stats dot11.Stats) error {
	return j.encode(NewStatsRecord(stats))
}

func (j *JSONLines) encode(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.encoder.Encode(v)
}

// Close flushes buffered frames. The underlying writer is left open.
func (j *JSONLines) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()

	j.frames.Stop()
	j.frames.WaitDone()
	return nil
}
