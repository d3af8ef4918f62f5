package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// SystemSnapshot is the system-wide resource sample spec.md §4.10 polls
// every 5s: CPU%, memory%, memory MB, disk%.
type SystemSnapshot struct {
	CPUPercent  float64   `json:"cpu_percent"`
	MemPercent  float64   `json:"mem_percent"`
	MemUsedMB   float64   `json:"mem_used_mb"`
	DiskPercent float64   `json:"disk_percent"`
	At          time.Time `json:"at"`
}

// Poller samples system resource usage via gopsutil on a fixed interval
// (grounded in other_examples' growloc-cctv-agent, which carries
// github.com/shirou/gopsutil/v3 as a direct agent-health dependency).
type Poller struct {
	interval time.Duration
	diskPath string
	log      *zap.SugaredLogger

	mu     sync.RWMutex
	latest SystemSnapshot
}

func NewPoller(intervalSec int, diskPath string, log *zap.SugaredLogger) *Poller {
	if intervalSec <= 0 {
		intervalSec = 5
	}
	if diskPath == "" {
		diskPath = "/"
	}
	return &Poller{interval: time.Duration(intervalSec) * time.Second, diskPath: diskPath, log: log}
}

// Run samples on a ticker until ctx is cancelled. A sampling failure is
// logged and the previous snapshot is kept, matching §7's "unhandled
// exceptions inside a background task must never crash the process".
func (p *Poller) Run(ctx context.Context) {
	p.sample()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample()
		}
	}
}

func (p *Poller) sample() {
	snap := SystemSnapshot{At: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = pct[0]
	} else if err != nil {
		p.log.Debugw("monitoring: cpu sample failed", "error", err)
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemPercent = vm.UsedPercent
		snap.MemUsedMB = float64(vm.Used) / (1024 * 1024)
	} else {
		p.log.Debugw("monitoring: mem sample failed", "error", err)
	}

	if du, err := disk.Usage(p.diskPath); err == nil {
		snap.DiskPercent = du.UsedPercent
	} else {
		p.log.Debugw("monitoring: disk sample failed", "path", p.diskPath, "error", err)
	}

	p.mu.Lock()
	p.latest = snap
	p.mu.Unlock()
}

// Latest returns the most recent sample.
func (p *Poller) Latest() SystemSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}
