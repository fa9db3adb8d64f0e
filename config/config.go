package config

import (
	"os"
	"time"

	"browsergate/errors"
)

// DefaultConfig is the bundled fallback, loaded before any config file or
// environment overrides are applied (teacher's config.DefaultConfig
// pattern: a YAML literal koanf parses on top of struct defaults).
var DefaultConfig = []byte(`
application: "browsergate"

listen:
  http: ":8080"
  ws: ":8081"

cors:
  allowed_origins:
  - "http://localhost:3000"
  - "https://localhost:3000"

logger:
  level: "info"
  format: "console"

pool:
  max_browsers: 10
  min_browsers: 1
  max_pages_per_browser: 10
  idle_timeout: "5m"
  health_check_interval: "30s"
  response_timeout: "5s"
  acquisition_timeout: "30s"
  recycle_after_uses: 200
  max_age: "2h"
  max_memory_per_browser_mb: 1024
  max_cpu_per_browser: 80
  max_queue_length: 100
  maintenance_interval: "1m"
  browser_type: "chromium"
  headless: true

session_store:
  backend: "memory"
  mongo_uri: ""
  mongo_database: "browsergate"
  mongo_collection: "sessions"

admission:
  default_tier: "free"

events:
  kafka_brokers: []
  kafka_topic: "browsergate.events"

capture:
  s3_bucket: ""
  s3_region: "us-east-1"
  inline_screenshot_limit_bytes: 262144
  recording_storage_path: "/tmp/browsergate/recordings"
`)

// Config is browsergate's top-level configuration, loaded by koanf from
// DefaultConfig, then a config file, then environment variables, each
// layer overriding the last (teacher's config.ApxConfig loading order).
type Config struct {
	Application string        `koanf:"application" json:"application"`
	Logger      LoggerConfig  `koanf:"logger" json:"logger"`
	Listen      ListenConfig  `koanf:"listen" json:"listen"`
	Cors        CORS          `koanf:"cors" json:"cors"`
	Pool        PoolConfig    `koanf:"pool" json:"pool"`
	Session     SessionConfig `koanf:"session_store" json:"session_store"`
	Admission   AdmissionCfg  `koanf:"admission" json:"admission"`
	Events      EventsConfig  `koanf:"events" json:"events"`
	Capture     CaptureConfig `koanf:"capture" json:"capture"`
}

// ListenConfig carries the bind addresses for the two network-facing wire
// adapters; the MCP adapter has no listen address, it speaks stdio.
type ListenConfig struct {
	HTTP string `koanf:"http" json:"http"`
	WS   string `koanf:"ws" json:"ws"`
}

type CORS struct {
	AllowedOrigins []string `koanf:"allowed_origins" json:"allowed_origins"`
}

type LoggerConfig struct {
	Level    string `koanf:"level" json:"level"`
	// Format selects the zap encoder: "console" for human-readable
	// development output, "logfmt" for the key=value format services
	// ship to a log aggregator.
	Format   string `koanf:"format" json:"format"`
	HostName string `koanf:"host_name" json:"host_name"`
}

// PoolConfig mirrors services/pool.Config so it can be loaded from
// file/env and converted with ToPoolConfig; BrowserType and Headless
// become pool.Config.LaunchOptions.
type PoolConfig struct {
	MaxBrowsers           int           `koanf:"max_browsers" json:"max_browsers"`
	MinBrowsers           int           `koanf:"min_browsers" json:"min_browsers"`
	MaxPagesPerBrowser    int           `koanf:"max_pages_per_browser" json:"max_pages_per_browser"`
	IdleTimeout           time.Duration `koanf:"idle_timeout" json:"idle_timeout"`
	HealthCheckInterval   time.Duration `koanf:"health_check_interval" json:"health_check_interval"`
	ResponseTimeout       time.Duration `koanf:"response_timeout" json:"response_timeout"`
	AcquisitionTimeout    time.Duration `koanf:"acquisition_timeout" json:"acquisition_timeout"`
	RecycleAfterUses      int64         `koanf:"recycle_after_uses" json:"recycle_after_uses"`
	MaxAge                time.Duration `koanf:"max_age" json:"max_age"`
	MaxMemoryPerBrowserMB float64       `koanf:"max_memory_per_browser_mb" json:"max_memory_per_browser_mb"`
	MaxCPUPerBrowser      float64       `koanf:"max_cpu_per_browser" json:"max_cpu_per_browser"`
	MaxQueueLength        int           `koanf:"max_queue_length" json:"max_queue_length"`
	MaintenanceInterval   time.Duration `koanf:"maintenance_interval" json:"maintenance_interval"`
	BrowserType           string        `koanf:"browser_type" json:"browser_type"`
	Headless              bool          `koanf:"headless" json:"headless"`
}

// SessionConfig selects and parameterizes the session store backend.
type SessionConfig struct {
	Backend         string `koanf:"backend" json:"backend"` // "memory" or "mongo"
	MongoURI        string `koanf:"mongo_uri" json:"mongo_uri"`
	MongoDatabase   string `koanf:"mongo_database" json:"mongo_database"`
	MongoCollection string `koanf:"mongo_collection" json:"mongo_collection"`
}

// AdmissionCfg picks the tier a tenant falls back to when unregistered;
// the tier->Policy table itself is admission.DefaultPolicies().
type AdmissionCfg struct {
	DefaultTier string `koanf:"default_tier" json:"default_tier"`
}

// EventsConfig selects which event observers beyond the in-memory audit
// sink are registered. KafkaBrokers empty disables the Kafka observer
// entirely (the audit observer always runs).
type EventsConfig struct {
	KafkaBrokers []string `koanf:"kafka_brokers" json:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic" json:"kafka_topic"`
}

// CaptureConfig parameterizes screenshot/recording storage. S3Bucket
// empty disables S3 offload entirely (screenshots always stay inline).
type CaptureConfig struct {
	S3Bucket                string `koanf:"s3_bucket" json:"s3_bucket"`
	S3Region                string `koanf:"s3_region" json:"s3_region"`
	InlineScreenshotLimit   int    `koanf:"inline_screenshot_limit_bytes" json:"inline_screenshot_limit_bytes"`
	RecordingStoragePath    string `koanf:"recording_storage_path" json:"recording_storage_path"`
}

// Validate checks required fields and fills in host-derived defaults,
// following the teacher's ApxConfig.Validate shape (a ValidationErrs
// collector, Add per missing field, then a single returned error).
func (c *Config) Validate() error {
	ve := errors.ValidationErrs()

	if c.Application == "" {
		c.Application = "browsergate"
	}
	if c.Listen.HTTP == "" {
		ve.Add("listen.http", "cannot be empty")
	}
	if c.Listen.WS == "" {
		ve.Add("listen.ws", "cannot be empty")
	}
	if c.Logger.Level == "" {
		ve.Add("logger.level", "cannot be empty")
	}
	if c.Pool.MaxBrowsers <= 0 {
		ve.Add("pool.max_browsers", "must be positive")
	}
	if c.Pool.MinBrowsers < 0 || c.Pool.MinBrowsers > c.Pool.MaxBrowsers {
		ve.Add("pool.min_browsers", "must be between 0 and max_browsers")
	}
	switch c.Session.Backend {
	case "memory":
	case "mongo":
		if c.Session.MongoURI == "" {
			ve.Add("session_store.mongo_uri", "required when backend is mongo")
		}
	default:
		ve.Add("session_store.backend", "must be \"memory\" or \"mongo\"")
	}

	if host, err := os.Hostname(); err != nil {
		ve.Add("hostname", "invalid")
	} else {
		c.Logger.HostName = host
	}

	return ve.Err()
}
