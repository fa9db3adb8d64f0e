// Package recycler implements spec §4.4: composite scoring of candidate
// instances and bounded, cooldown-gated batch execution. It never
// destroys an instance itself — execution is delegated to a callback the
// pool manager supplies, keeping the "only the Pool Manager mutates
// instances" invariant (spec §3 Ownership) intact.
package recycler

import "time"

// Weights configures the composite score (spec §4.4: "weighted sum of
// normalized sub-scores"). Values need not sum to 1; Score normalizes.
type Weights struct {
	Age          float64
	UseCount     float64
	Memory       float64
	CPU          float64
	Unresponsive float64
	PageLeak     float64
	ErrorRate    float64
}

// DefaultWeights mirrors the Open Question decision recorded in
// SPEC_FULL.md: unresponsiveness and memory pressure dominate, since a
// hung or leaking browser costs more than one that's merely old.
func DefaultWeights() Weights {
	return Weights{
		Age:          0.15,
		UseCount:     0.15,
		Memory:       0.20,
		CPU:          0.15,
		Unresponsive: 0.20,
		PageLeak:     0.10,
		ErrorRate:    0.05,
	}
}

// Config carries the thresholds the composite score is normalized
// against, plus the execution-time knobs (spec §6 keys plus §4.4 batch
// and cooldown behavior).
type Config struct {
	Weights            Weights
	MaxAge             time.Duration
	RecycleAfterUses   int64
	MaxMemoryMB        float64
	MaxCPUPercent      float64
	MaxPagesPerBrowser int
	RecyclingThreshold float64 // default 60
	MaxBatchSize       int
	Cooldown           time.Duration
}

// DefaultConfig matches the spec §4.4 defaults (threshold 60).
func DefaultConfig() Config {
	return Config{
		Weights:            DefaultWeights(),
		MaxAge:             2 * time.Hour,
		RecycleAfterUses:   200,
		MaxMemoryMB:        1024,
		MaxCPUPercent:      80,
		MaxPagesPerBrowser: 10,
		RecyclingThreshold: 60,
		MaxBatchSize:       3,
		Cooldown:           90 * time.Second,
	}
}
