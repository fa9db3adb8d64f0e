// Package scaler implements spec §4.6: the decision rules that grow or
// shrink the pool in response to utilization, queue pressure and trend.
// Like the recycler, it only ever produces a Decision; the maintenance
// loop enacts it through the pool manager.
package scaler

import (
	"sync"
	"time"

	"browsergate/models/scaling"
	"browsergate/services/metrics"
)

// Config carries the spec §6 scaling keys.
type Config struct {
	MaxBrowsers         int
	MinBrowsers         int
	ScaleUpThreshold    float64 // utilization %, default e.g. 75
	ScaleDownThreshold  float64 // utilization %, default e.g. 25
	MaxScaleStep        int
	EmergencyQueueLen   int // Open Question decision: default 10
	ScaleUpCooldown     time.Duration
	ScaleDownCooldown   time.Duration
	TrendEpsilon        float64
}

// DefaultConfig matches the thresholds SPEC_FULL.md records.
func DefaultConfig() Config {
	return Config{
		MaxBrowsers:        10,
		MinBrowsers:        1,
		ScaleUpThreshold:   75,
		ScaleDownThreshold: 25,
		MaxScaleStep:       2,
		EmergencyQueueLen:  10,
		ScaleUpCooldown:    30 * time.Second,
		ScaleDownCooldown:  2 * time.Minute,
		TrendEpsilon:       0.01,
	}
}

// Scaler evaluates a metrics snapshot against the spec §4.6 decision
// rules, in order, holding the cooldown state between evaluations.
type Scaler struct {
	cfg Config

	mu               sync.Mutex
	lastScaleUp      time.Time
	lastScaleDown    time.Time
}

// New builds a Scaler.
func New(cfg Config) *Scaler {
	return &Scaler{cfg: cfg}
}

// Decide evaluates the current snapshot and pool size against the rules
// of spec §4.6, in the documented precedence order.
func (s *Scaler) Decide(snapshot metrics.Snapshot, currentSize int) scaling.Decision {
	now := time.Now()
	headroom := s.cfg.MaxBrowsers - currentSize

	s.mu.Lock()
	defer s.mu.Unlock()

	// Rule 1: emergency scale-up bypasses the scale-up cooldown.
	if snapshot.Utilization >= 90 && snapshot.QueueLength >= s.cfg.EmergencyQueueLen && currentSize < s.cfg.MaxBrowsers {
		step := s.cfg.MaxScaleStep * 2
		if step > headroom {
			step = headroom
		}
		if step > 0 {
			s.lastScaleUp = now
			return scaling.Decision{
				Kind:         scaling.KindEmergency,
				PreviousSize: currentSize,
				TargetSize:   currentSize + step,
				Confidence:   95,
				Rationale:    "utilization and queue length both critical",
			}
		}
	}

	// Rule 2: scale up.
	if now.Sub(s.lastScaleUp) >= s.cfg.ScaleUpCooldown && currentSize < s.cfg.MaxBrowsers {
		trendIncreasing := snapshot.UtilizationTrend > s.cfg.TrendEpsilon
		if snapshot.Utilization >= s.cfg.ScaleUpThreshold || (snapshot.QueueLength > 0 && trendIncreasing) {
			step := s.cfg.MaxScaleStep
			if step > headroom {
				step = headroom
			}
			if step > 0 {
				s.lastScaleUp = now
				return scaling.Decision{
					Kind:         scaling.KindScaleUp,
					PreviousSize: currentSize,
					TargetSize:   currentSize + step,
					Confidence:   75,
					Rationale:    "utilization at or above scaleUpThreshold, or queue growing",
				}
			}
		}
	}

	// Rule 3: scale down.
	if now.Sub(s.lastScaleDown) >= s.cfg.ScaleDownCooldown && currentSize > s.cfg.MinBrowsers {
		if snapshot.Utilization <= s.cfg.ScaleDownThreshold && snapshot.QueueLength == 0 {
			s.lastScaleDown = now
			return scaling.Decision{
				Kind:         scaling.KindScaleDown,
				PreviousSize: currentSize,
				TargetSize:   currentSize - 1,
				Confidence:   60,
				Rationale:    "utilization at or below scaleDownThreshold with an empty queue",
			}
		}
	}

	return scaling.Decision{
		Kind:         scaling.KindNone,
		PreviousSize: currentSize,
		TargetSize:   currentSize,
	}
}
