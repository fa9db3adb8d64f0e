package health

import (
	"context"
	"time"

	"github.com/prometheus/procfs"

	"browsergate/services/metrics"
)

// HostSampler is the fourth background worker spec §4.1 lists alongside
// the maintenance tick, health sampler and scaler tick: a periodic
// host-level CPU/memory sample feeding the Scaler's host-pressure inputs
// (spec §4.6 "host CPU and memory").
type HostSampler struct {
	interval time.Duration
	metrics  *metrics.Collector
	fs       procfs.FS

	prevTotal float64
	prevIdle  float64
	havePrev  bool
}

// NewHostSampler builds a HostSampler reading from the default /proc
// mount. Returns ok=false if /proc isn't available (non-Linux, or a
// sandboxed environment without procfs) so callers can skip starting it.
func NewHostSampler(interval time.Duration, collector *metrics.Collector) (*HostSampler, bool) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, false
	}
	return &HostSampler{interval: interval, metrics: collector, fs: fs}, true
}

// Run samples every interval until ctx is cancelled.
func (h *HostSampler) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	h.sample()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sample()
		}
	}
}

func (h *HostSampler) sample() {
	if stat, err := h.fs.Stat(); err == nil {
		total := stat.CPUTotal.User + stat.CPUTotal.System + stat.CPUTotal.Idle +
			stat.CPUTotal.Nice + stat.CPUTotal.Iowait + stat.CPUTotal.IRQ +
			stat.CPUTotal.SoftIRQ + stat.CPUTotal.Steal
		idle := stat.CPUTotal.Idle + stat.CPUTotal.Iowait

		if h.havePrev {
			deltaTotal := total - h.prevTotal
			deltaIdle := idle - h.prevIdle
			if deltaTotal > 0 {
				busyPct := (1 - deltaIdle/deltaTotal) * 100
				h.metrics.Observe(metrics.SeriesHostCPU, busyPct)
			}
		}
		h.prevTotal, h.prevIdle, h.havePrev = total, idle, true
	}

	if mem, err := h.fs.Meminfo(); err == nil && mem.MemTotal != nil && mem.MemAvailable != nil {
		total := float64(*mem.MemTotal)
		avail := float64(*mem.MemAvailable)
		if total > 0 {
			usedPct := (1 - avail/total) * 100
			h.metrics.Observe(metrics.SeriesHostMemory, usedPct)
		}
	}
}
