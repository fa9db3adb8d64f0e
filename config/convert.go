package config

import (
	"browsergate/services/driver"
	"browsergate/services/pool"
)

// ToPoolConfig converts the loaded PoolConfig into pool.Config, the shape
// the Pool Manager actually consumes. Kept as a separate conversion step
// rather than tagging pool.Config with koanf directly, so services/pool
// stays ignorant of how its config is sourced.
func (p PoolConfig) ToPoolConfig() pool.Config {
	return pool.Config{
		MaxBrowsers:           p.MaxBrowsers,
		MinBrowsers:           p.MinBrowsers,
		MaxPagesPerBrowser:    p.MaxPagesPerBrowser,
		IdleTimeout:           p.IdleTimeout,
		HealthCheckInterval:   p.HealthCheckInterval,
		ResponseTimeout:       p.ResponseTimeout,
		AcquisitionTimeout:    p.AcquisitionTimeout,
		RecycleAfterUses:      p.RecycleAfterUses,
		MaxAge:                p.MaxAge,
		MaxMemoryPerBrowserMB: p.MaxMemoryPerBrowserMB,
		MaxCPUPerBrowser:      p.MaxCPUPerBrowser,
		MaxQueueLength:        p.MaxQueueLength,
		MaintenanceInterval:   p.MaintenanceInterval,
		LaunchOptions: driver.LaunchOptions{
			BrowserType: p.BrowserType,
			Headless:    p.Headless,
		},
	}
}
