package pool

import "context"

// Runner is satisfied by the health monitor and maintenance loop: both
// run their own ticker inside Run and return when ctx is cancelled.
// Declaring the interface here (rather than importing those packages)
// keeps pool dependency-free of its own consumers.
type Runner interface {
	Run(ctx context.Context)
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithWorkers registers background Runners started by Initialize and
// stopped by Shutdown (spec §4.1: "maintenance tick, health sampler,
// resource sampler, scaler tick").
func WithWorkers(workers ...Runner) Option {
	return func(m *Manager) {
		m.workers = append(m.workers, workers...)
	}
}

// RegisterWorker appends a background Runner after construction, for
// workers (health monitor, maintenance loop) that need a pointer back to
// the already-built Manager. Must be called before Initialize.
func (m *Manager) RegisterWorker(w Runner) {
	m.workers = append(m.workers, w)
}
