// Package health implements the Health Monitor (spec §4.2): periodic
// per-instance liveness and resource sampling, escalating three
// consecutive unhealthy results (or a single hard disconnect) without
// ever destroying an Active instance directly.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"browsergate/logger"
	"browsergate/models/browser"
	"browsergate/services/driver"
	"browsergate/services/metrics"
)

// Config carries the spec §6 health keys.
type Config struct {
	CheckInterval   time.Duration
	ResponseTimeout time.Duration
}

// DefaultConfig matches spec §4.2's suggested defaults.
func DefaultConfig() Config {
	return Config{CheckInterval: 30 * time.Second, ResponseTimeout: 5 * time.Second}
}

// PoolView is the narrow read surface the Monitor needs; pool.Manager
// satisfies it structurally.
type PoolView interface {
	Instances() []*browser.Instance
	Driver() driver.Driver
}

// EscalationFunc is invoked when an instance crosses the escalation
// threshold. Idle instances are recycled immediately by the callback;
// Active instances are expected to only be flagged (pool.Manager.RecycleNow
// already implements exactly this split).
type EscalationFunc func(ctx context.Context, browserID string) error

// Monitor runs the periodic health sampler.
type Monitor struct {
	pool       PoolView
	cfg        Config
	metrics    *metrics.Collector
	escalate   EscalationFunc
	wg         sync.WaitGroup
}

// New builds a Monitor. escalate is called on every check that finds an
// instance hard-disconnected or at three or more consecutive unhealthy
// results, so a long streak escalates the same instance repeatedly.
func New(pool PoolView, cfg Config, collector *metrics.Collector, escalate EscalationFunc) *Monitor {
	return &Monitor{pool: pool, cfg: cfg, metrics: collector, escalate: escalate}
}

// Run ticks every cfg.CheckInterval until ctx is cancelled, firing one
// independent check per instance (spec §4.2 "Ordering": "checks for
// distinct instances are independent and may run concurrently").
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.wg.Wait()
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	for _, inst := range m.pool.Instances() {
		if inst.State() == browser.StateDisposed {
			continue
		}
		m.wg.Add(1)
		go func(inst *browser.Instance) {
			defer m.wg.Done()
			m.check(ctx, inst)
		}(inst)
	}
}

// check performs one round-trip against a single instance, writes the
// result and escalates on three consecutive failures or a hard
// disconnect (spec §4.2 "Contract").
func (m *Monitor) check(ctx context.Context, inst *browser.Instance) {
	stop := m.metrics.Timer(metrics.SeriesHealthCheckDur)
	defer stop()

	checkCtx, cancel := context.WithTimeout(ctx, m.cfg.ResponseTimeout)
	defer cancel()

	drv := m.pool.Driver()
	rec := browser.HealthRecord{LastCheckAt: time.Now()}

	connected := drv.IsConnected(checkCtx, inst.Handle)
	if !connected {
		rec.Healthy = false
		rec.Responsive = false
		rec.LastError = "not connected"
		inst.SetHealth(rec)
		m.maybeEscalate(ctx, inst, true)
		return
	}

	_, err := drv.Version(checkCtx, inst.Handle)
	rec.Responsive = err == nil
	if err != nil {
		rec.LastError = err.Error()
	}

	pages := inst.PageCount()
	rec.OpenPages = &pages

	if usage, ok := sampleResourceUsage(inst); ok {
		rec.MemoryMB = &usage.memoryMB
		rec.CPUPercent = &usage.cpuPercent
	}

	rec.Healthy = rec.Responsive
	inst.SetHealth(rec)
	m.maybeEscalate(ctx, inst, false)
}

func (m *Monitor) maybeEscalate(ctx context.Context, inst *browser.Instance, hardDisconnect bool) {
	streak := inst.Health().ConsecutiveUnhealthy()
	if !hardDisconnect && streak < 3 {
		return
	}
	if m.escalate == nil {
		return
	}
	if err := m.escalate(ctx, inst.ID); err != nil {
		logger.Warn("health escalation failed", zap.String("browserId", inst.ID), zap.Error(err))
	}
}

type resourceSample struct {
	memoryMB   float64
	cpuPercent float64
}

// sampleResourceUsage is a best-effort OS-level sample keyed off the
// instance's pid; many sandboxed environments can't read another
// process's RSS/CPU, so a miss is silently skipped rather than treated
// as unhealthy (Open Question decision recorded in SPEC_FULL.md).
func sampleResourceUsage(inst *browser.Instance) (resourceSample, bool) {
	if inst.PID == nil {
		return resourceSample{}, false
	}
	return readProcUsage(*inst.PID)
}
