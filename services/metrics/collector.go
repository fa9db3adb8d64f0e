package metrics

import (
	"sync"
	"time"
)

// Series names for the fixed set spec §4.8 requires.
const (
	SeriesAcquireLatency     = "acquire_latency_ms"
	SeriesReleaseLatency     = "release_latency_ms"
	SeriesQueueLength        = "queue_length"
	SeriesQueueWaitTime      = "queue_wait_time_ms"
	SeriesPoolSize           = "pool_size"
	SeriesActiveCount        = "active_count"
	SeriesUtilization        = "utilization_pct"
	SeriesErrorRate          = "error_rate"
	SeriesPageCreationTime   = "page_creation_time_ms"
	SeriesHealthCheckDur     = "health_check_duration_ms"
	SeriesHostCPU            = "host_cpu_pct"
	SeriesHostMemory         = "host_memory_pct"
)

var allSeries = []string{
	SeriesAcquireLatency, SeriesReleaseLatency, SeriesQueueLength, SeriesQueueWaitTime,
	SeriesPoolSize, SeriesActiveCount, SeriesUtilization, SeriesErrorRate,
	SeriesPageCreationTime, SeriesHealthCheckDur, SeriesHostCPU, SeriesHostMemory,
}

// Collector owns the bounded time-series store for every metric the
// gateway tracks, plus the alert pipeline layered on top of it.
type Collector struct {
	mu     sync.RWMutex
	series map[string]*Series
	alerts *AlertManager
}

// NewCollector builds a Collector with the default 1h retention window
// for every series (spec §3 MetricPoint: "bounded by a time window,
// default 1 h").
func NewCollector() *Collector {
	c := &Collector{series: make(map[string]*Series)}
	for _, name := range allSeries {
		c.series[name] = NewSeries(time.Hour)
	}
	c.alerts = NewAlertManager(c)
	return c
}

// Observe records a sample on the named series, creating it on first use
// if it isn't one of the well-known series.
func (c *Collector) Observe(name string, value float64) {
	c.mu.Lock()
	s, ok := c.series[name]
	if !ok {
		s = NewSeries(time.Hour)
		c.series[name] = s
	}
	c.mu.Unlock()
	s.Observe(value)
	c.alerts.evaluate(name, value)
}

// Series returns the named series, creating it if absent.
func (c *Collector) Series(name string) *Series {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.series[name]
	if !ok {
		s = NewSeries(time.Hour)
		c.series[name] = s
	}
	return s
}

// GetStats implements spec §4.8's getStats(window) contract.
func (c *Collector) GetStats(name string, window time.Duration) Stats {
	return c.Series(name).Stats(window)
}

// Timer starts a latency timer; calling the returned func records the
// elapsed milliseconds on the named series.
func (c *Collector) Timer(name string) func() {
	start := time.Now()
	return func() {
		c.Observe(name, float64(time.Since(start).Milliseconds()))
	}
}

// Alerts returns the collector's alert manager, for adapters that want
// to subscribe or inspect active alerts.
func (c *Collector) Alerts() *AlertManager { return c.alerts }

// Snapshot is the immutable read of the metrics surface spec §4.1's
// metricsSnapshot() exposes, plus the extra fields the Scaler (§4.6)
// needs (queue length, error rate, host usage, trend history).
type Snapshot struct {
	Utilization      float64
	QueueLength      int
	AvgWaitTimeMs    float64
	ErrorRate        float64
	AvgAcquireMs     float64
	HostCPU          float64
	HostMemory       float64
	Active           int
	Size             int
	UtilizationTrend float64 // slope over the last N utilization samples
}

// Snapshot builds a point-in-time Snapshot from the tracked series.
func (c *Collector) Snapshot(trendSamples int) Snapshot {
	util := c.Series(SeriesUtilization)
	queue := c.Series(SeriesQueueLength)
	wait := c.Series(SeriesQueueWaitTime)
	errRate := c.Series(SeriesErrorRate)
	acquire := c.Series(SeriesAcquireLatency)
	hostCPU := c.Series(SeriesHostCPU)
	hostMem := c.Series(SeriesHostMemory)
	active := c.Series(SeriesActiveCount)
	size := c.Series(SeriesPoolSize)

	latestOf := func(s *Series) float64 {
		vals := s.Values(0)
		if len(vals) == 0 {
			return 0
		}
		return vals[len(vals)-1]
	}

	return Snapshot{
		Utilization:      latestOf(util),
		QueueLength:      int(latestOf(queue)),
		AvgWaitTimeMs:    wait.Stats(0).Mean,
		ErrorRate:        latestOf(errRate),
		AvgAcquireMs:     acquire.Stats(0).Mean,
		HostCPU:          latestOf(hostCPU),
		HostMemory:       latestOf(hostMem),
		Active:           int(latestOf(active)),
		Size:             int(latestOf(size)),
		UtilizationTrend: util.Slope(trendSamples),
	}
}
