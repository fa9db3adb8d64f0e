// Package pool implements the Browser Pool Manager (spec §4.1), the
// component the rest of the gateway is built around. It owns every
// BrowserInstance's lifetime; the health monitor, recycler and scaler
// only ever read through Manager's exported snapshot methods
// or hand back decisions the Manager enacts.
package pool

import (
	"time"

	"browsergate/services/driver"
)

// Config carries the spec §6 configuration keys the pool itself consumes.
type Config struct {
	MaxBrowsers           int
	MinBrowsers           int
	MaxPagesPerBrowser    int
	IdleTimeout           time.Duration
	HealthCheckInterval   time.Duration
	ResponseTimeout       time.Duration
	AcquisitionTimeout    time.Duration
	RecycleAfterUses      int64
	MaxAge                time.Duration
	MaxMemoryPerBrowserMB float64
	MaxCPUPerBrowser      float64
	MaxQueueLength        int
	MaintenanceInterval   time.Duration
	LaunchOptions         driver.LaunchOptions
}

// DefaultConfig matches the teacher's dynamic_config.go style of shipping
// sane defaults that SPEC_FULL.md's config layer can override per key.
func DefaultConfig() Config {
	return Config{
		MaxBrowsers:           10,
		MinBrowsers:           1,
		MaxPagesPerBrowser:    10,
		IdleTimeout:           5 * time.Minute,
		HealthCheckInterval:   30 * time.Second,
		ResponseTimeout:       5 * time.Second,
		AcquisitionTimeout:    30 * time.Second,
		RecycleAfterUses:      200,
		MaxAge:                2 * time.Hour,
		MaxMemoryPerBrowserMB: 1024,
		MaxCPUPerBrowser:      80,
		MaxQueueLength:        100,
		MaintenanceInterval:   time.Minute,
		LaunchOptions:         driver.LaunchOptions{BrowserType: "chromium", Headless: true},
	}
}
