// Package maintenance implements the Maintenance Loop (spec §4.3): a
// single ticker driving idle cleanup, bounded recycler execution, scaler
// evaluation and a metrics snapshot, all non-blocking with respect to
// acquire/release.
package maintenance

import (
	"context"
	"time"

	"go.uber.org/zap"

	"browsergate/logger"
	"browsergate/models/browser"
	"browsergate/models/scaling"
	"browsergate/services/metrics"
	"browsergate/services/recycler"
	"browsergate/services/scaler"
)

// Config carries the loop's own tick interval and the idle-timeout
// threshold it sweeps with (spec §6 idleTimeoutMs).
type Config struct {
	Interval    time.Duration
	IdleTimeout time.Duration
}

// DefaultConfig matches spec §4.3's "default 1 min" tick.
func DefaultConfig() Config {
	return Config{Interval: time.Minute, IdleTimeout: 5 * time.Minute}
}

// Pool is the mutation surface the loop drives; pool.Manager satisfies
// it structurally.
type Pool interface {
	Instances() []*browser.Instance
	DestroyIdleOlderThan(idleTimeout time.Duration) []string
	RecycleNow(ctx context.Context, browserID string) error
	LaunchOne(ctx context.Context) (*browser.Instance, error)
	RecycleLeastUtilizedIdle(ctx context.Context) (string, error)
	MetricsSnapshot() metrics.Snapshot
	Size() int
}

// Loop is the spec §4.3 maintenance ticker, composing a recycler.Scorer
// + recycler.Executor and a scaler.Scaler over a Pool.
type Loop struct {
	pool     Pool
	scorer   *recycler.Scorer
	executor *recycler.Executor
	decider  *scaler.Scaler
	cfg      Config
}

// New builds a Loop.
func New(pool Pool, scorer *recycler.Scorer, executor *recycler.Executor, decider *scaler.Scaler, cfg Config) *Loop {
	return &Loop{pool: pool, scorer: scorer, executor: executor, decider: decider, cfg: cfg}
}

// Run ticks every cfg.Interval until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	destroyed := l.pool.DestroyIdleOlderThan(l.cfg.IdleTimeout)
	if len(destroyed) > 0 {
		logger.Info("maintenance: destroyed idle instances", zap.Int("count", len(destroyed)))
	}

	instances := l.pool.Instances()
	candidates := l.scorer.Candidates(instances, nil)
	if len(candidates) > 0 {
		results := l.executor.Execute(ctx, candidates, instances, l.pool.RecycleNow)
		for _, r := range results {
			if !r.Success {
				logger.Warn("maintenance: recycle failed", zap.String("browserId", r.BrowserID), zap.String("error", r.Error))
			}
		}
	}

	snapshot := l.pool.MetricsSnapshot()
	decision := l.decider.Decide(snapshot, l.pool.Size())
	l.applyDecision(ctx, decision)
}

func (l *Loop) applyDecision(ctx context.Context, decision scaling.Decision) {
	switch decision.Kind {
	case scaling.KindScaleUp, scaling.KindEmergency:
		for i := decision.PreviousSize; i < decision.TargetSize; i++ {
			if _, err := l.pool.LaunchOne(ctx); err != nil {
				logger.Warn("maintenance: scale-up launch failed", zap.Error(err))
				break
			}
		}
	case scaling.KindScaleDown:
		if _, err := l.pool.RecycleLeastUtilizedIdle(ctx); err != nil {
			logger.Warn("maintenance: scale-down recycle failed", zap.Error(err))
		}
	}
}
