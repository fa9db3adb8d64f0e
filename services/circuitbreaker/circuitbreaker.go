// Package circuitbreaker wraps sony/gobreaker (already in the teacher's
// execution_bridge, one-per-endpoint) into the single breaker spec §4.5
// places in front of pool.Manager.Acquire. gobreaker's native state
// machine is already exactly the Closed/Open/HalfOpen machine the spec
// describes, so this package is a thin adapter rather than a
// reimplementation.
package circuitbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"browsergate/errors"
	"browsergate/logger"
)

// Config carries the spec §6 circuit-breaker keys.
type Config struct {
	FailureThreshold    uint32        // consecutive failures that trip the breaker
	FailureRateThreshold float64      // failure ratio that trips the breaker
	MinimumRequests     uint32        // requests required before the rate is evaluated
	RecoveryTimeout     time.Duration // Open -> HalfOpen
	SuccessThreshold    uint32        // consecutive HalfOpen successes to close
}

// DefaultConfig matches the thresholds the teacher's dynamic_config.go
// CircuitBreaker section documents.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:     5,
		FailureRateThreshold: 0.5,
		MinimumRequests:      10,
		RecoveryTimeout:      60 * time.Second,
		SuccessThreshold:     3,
	}
}

// Breaker guards a single protected operation (pool acquisition).
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New builds a Breaker named name (surfaced in OnStateChange logs).
func New(name string, cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.SuccessThreshold,
		Interval:    0, // never reset Closed-state counts on a timer; ReadyToTrip owns that
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= cfg.FailureThreshold {
				return true
			}
			if counts.Requests >= cfg.MinimumRequests {
				rate := float64(counts.TotalFailures) / float64(counts.Requests)
				if rate >= cfg.FailureRateThreshold {
					return true
				}
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker. In Open state (or when HalfOpen
// has exhausted its probe budget) it fails fast with errors.CircuitOpen
// without ever calling fn, matching spec P6 ("acquire returns within a
// small bounded time with CircuitOpen, no queueing").
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.CircuitOpen("pool acquisition circuit is open")
	}
	return result, err
}

// State reports the breaker's current state as the spec's CircuitState
// vocabulary (Closed/Open/HalfOpen).
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return "Open"
	case gobreaker.StateHalfOpen:
		return "HalfOpen"
	default:
		return "Closed"
	}
}

// Counts exposes the rolling counters backing the spec's CircuitState
// model ({state, failureCount, successCount, requestCount, ...}).
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}
