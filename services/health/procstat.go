package health

import (
	"sync"
	"time"

	"github.com/prometheus/procfs"
)

// cpuSample is the last raw CPU-time reading for a pid, used to turn
// procfs's cumulative counter into an instantaneous percentage.
type cpuSample struct {
	at      time.Time
	cpuTime float64 // seconds
}

var (
	cpuSamplesMu sync.Mutex
	cpuSamples   = make(map[int]cpuSample)
)

// readProcUsage samples RSS and CPU% for pid via /proc, matching the
// ecosystem's standard way of doing this (prometheus/procfs) rather than
// hand-parsing /proc ourselves. Returns ok=false on any error (pid gone,
// /proc unavailable) so the caller can skip the sample rather than
// report a false unhealthy reading.
func readProcUsage(pid int) (resourceSample, bool) {
	proc, err := procfs.NewProc(pid)
	if err != nil {
		return resourceSample{}, false
	}
	stat, err := proc.Stat()
	if err != nil {
		return resourceSample{}, false
	}

	memoryMB := float64(stat.ResidentMemory()) / (1024 * 1024)
	cpuTime := stat.CPUTime()

	now := time.Now()
	cpuSamplesMu.Lock()
	prev, had := cpuSamples[pid]
	cpuSamples[pid] = cpuSample{at: now, cpuTime: cpuTime}
	cpuSamplesMu.Unlock()

	var cpuPercent float64
	if had {
		elapsed := now.Sub(prev.at).Seconds()
		if elapsed > 0 {
			cpuPercent = ((cpuTime - prev.cpuTime) / elapsed) * 100
			if cpuPercent < 0 {
				cpuPercent = 0
			}
		}
	}

	return resourceSample{memoryMB: memoryMB, cpuPercent: cpuPercent}, true
}
