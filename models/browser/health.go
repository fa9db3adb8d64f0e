package browser

import "time"

// HealthRecord is the latest health observation for an instance (spec §3).
type HealthRecord struct {
	Healthy      bool
	Responsive   bool
	MemoryMB     *float64
	CPUPercent   *float64
	OpenPages    *int
	LastCheckAt  time.Time
	LastError    string
	consecutiveUnhealthy int
}

// ResourceUsage is the latest per-instance resource sample (spec §3).
type ResourceUsage struct {
	MemoryRSS       uint64
	CPUPercent      float64
	OpenHandles     int
	ConnectionCount int
	Timestamp       time.Time
}

// HostResourceUsage is a host-level sample accompanying ResourceUsage.
type HostResourceUsage struct {
	CPUUsage    float64
	MemoryUsed  uint64
	MemoryFree  uint64
	LoadAverage float64
	Timestamp   time.Time
}

// ConsecutiveUnhealthy returns the current run length of unhealthy checks.
func (h *HealthRecord) ConsecutiveUnhealthy() int { return h.consecutiveUnhealthy }

// RecordUnhealthy bumps the consecutive-unhealthy counter.
func (h *HealthRecord) RecordUnhealthy() { h.consecutiveUnhealthy++ }

// RecordHealthy resets the consecutive-unhealthy counter.
func (h *HealthRecord) RecordHealthy() { h.consecutiveUnhealthy = 0 }
