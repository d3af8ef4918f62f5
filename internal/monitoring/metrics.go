// Package monitoring implements C10: per-stream and aggregate throughput
// metrics, system resource polling, and per-component health checks,
// rolled up into the overall status spec.md §4.10 describes. Grounded on
// original_source/endpoints/streaming_monitoring.py for the metrics/health
// shape, with the EWMA-over-a-window idiom and gopsutil system polling
// taken from other_examples' growloc-cctv-agent.
package monitoring

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/streaming"
)

// ewmaWindow is the 60s averaging window spec.md §4.10 names for
// throughput_bps.
const ewmaWindow = 60 * time.Second

// StreamMetrics is one stream's reporting shape for the monitoring
// endpoints (spec.md §4.10).
type StreamMetrics struct {
	ID                 string             `json:"id"`
	Kind               model.StreamKind   `json:"kind"`
	Endpoint           string             `json:"endpoint"`
	BytesSent          int64              `json:"bytes_sent"`
	MessagesSent       int64              `json:"messages_sent"`
	Errors             int64              `json:"errors"`
	ConnectionDuration time.Duration      `json:"connection_duration_ns"`
	LastActivity       time.Time          `json:"last_activity"`
	ThroughputBPS      float64            `json:"throughput_bps"`
}

// Aggregate sums StreamMetrics across every live stream plus counts by
// kind (spec.md §4.10 "Aggregated: sums across streams plus counts by
// kind").
type Aggregate struct {
	Streams           []StreamMetrics            `json:"streams"`
	TotalBytesSent    int64                      `json:"total_bytes_sent"`
	TotalMessagesSent int64                      `json:"total_messages_sent"`
	TotalErrors       int64                      `json:"total_errors"`
	CountByKind       map[model.StreamKind]int   `json:"count_by_kind"`
}

// ewmaSample tracks one stream's throughput EWMA between polls.
type ewmaSample struct {
	lastBytes int64
	lastAt    time.Time
	bps       float64
}

// Collector samples a streaming.Registry periodically to maintain a
// 60-second EWMA throughput per stream, independent of the registry's own
// cumulative counters.
type Collector struct {
	registry *streaming.Registry
	running  atomic.Bool

	mu      sync.Mutex
	samples map[string]*ewmaSample
}

func NewCollector(registry *streaming.Registry) *Collector {
	c := &Collector{registry: registry, samples: make(map[string]*ewmaSample)}
	c.running.Store(true)
	return c
}

// Start/Stop toggle whether Run's ticker actually samples, backing
// POST /api/streaming/monitoring/{start,stop} (spec.md §6). Stopping does
// not tear down the collector, only pauses EWMA updates.
func (c *Collector) Start() { c.running.Store(true) }
func (c *Collector) Stop()  { c.running.Store(false) }
func (c *Collector) Running() bool { return c.running.Load() }

// Run samples on a fixed interval until ctx is cancelled, skipping ticks
// while Stop has been called.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.running.Load() {
				c.Sample()
			}
		}
	}
}

// Sample takes one EWMA measurement; callers invoke this on a ticker (the
// monitoring poll cadence, spec.md §4.10's "polled every 5 s").
func (c *Collector) Sample() {
	now := time.Now()
	regs := c.registry.Snapshot()
	live := make(map[string]bool, len(regs))

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, reg := range regs {
		live[reg.ID] = true
		s, ok := c.samples[reg.ID]
		if !ok {
			c.samples[reg.ID] = &ewmaSample{lastBytes: reg.BytesSent(), lastAt: now}
			continue
		}
		elapsed := now.Sub(s.lastAt).Seconds()
		if elapsed <= 0 {
			continue
		}
		instant := float64(reg.BytesSent()-s.lastBytes) / elapsed
		alpha := elapsed / ewmaWindow.Seconds()
		if alpha > 1 {
			alpha = 1
		}
		s.bps = s.bps + alpha*(instant-s.bps)
		s.lastBytes = reg.BytesSent()
		s.lastAt = now
	}
	for id := range c.samples {
		if !live[id] {
			delete(c.samples, id)
		}
	}
}

// Aggregate builds the current snapshot for the monitoring endpoints.
func (c *Collector) Aggregate() Aggregate {
	regs := c.registry.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	agg := Aggregate{CountByKind: make(map[model.StreamKind]int)}
	for _, reg := range regs {
		bps := 0.0
		if s, ok := c.samples[reg.ID]; ok {
			bps = s.bps
		}
		agg.Streams = append(agg.Streams, StreamMetrics{
			ID:                 reg.ID,
			Kind:               reg.Kind,
			Endpoint:           reg.ClientEndpoint,
			BytesSent:          reg.BytesSent(),
			MessagesSent:       reg.MessagesSent(),
			Errors:             reg.Errors(),
			ConnectionDuration: reg.ConnectionDuration(),
			LastActivity:       reg.LastActivity(),
			ThroughputBPS:      bps,
		})
		agg.TotalBytesSent += reg.BytesSent()
		agg.TotalMessagesSent += reg.MessagesSent()
		agg.TotalErrors += reg.Errors()
		agg.CountByKind[reg.Kind]++
	}
	return agg
}
