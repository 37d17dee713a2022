// Package config loads the engine's configuration with
// kelseyhightower/envconfig from environment variables, with CLI flags
// (cmd/refharvest) bound on top of the struct returned here and taking
// precedence when set.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every recognized environment-driven option.
type Config struct {
	Username string `envconfig:"USERNAME" required:"true"`
	Password string `envconfig:"PASSWORD" required:"true"`

	LoginURL     string `envconfig:"LOGIN_URL" required:"true"`
	InventoryURL string `envconfig:"INVENTORY_URL" required:"true"`
	RefColumn    string `envconfig:"REF_COLUMN" default:"reference"`

	Headless       bool `envconfig:"HEADLESS" default:"true"`
	BlockResources bool `envconfig:"BLOCK_RESOURCES" default:"true"`

	MaxDownloads int `envconfig:"MAX_DOWNLOADS" default:"0"`
	// ConcurrentContexts is a misnomer retained for compatibility with
	// earlier tooling: it is the number of worker tabs within the
	// single shared browser context, not a count of independent
	// browser contexts.
	ConcurrentContexts int `envconfig:"CONCURRENT_CONTEXTS" default:"5"`

	TaskTimeoutSeconds      int `envconfig:"TASK_TIMEOUT_SECONDS" default:"180"`
	StuckThresholdSeconds   int `envconfig:"STUCK_THRESHOLD_SECONDS" default:"300"`
	WatchdogIntervalSeconds int `envconfig:"WATCHDOG_INTERVAL_SECONDS" default:"60"`
	MaxRetries              int `envconfig:"MAX_RETRIES" default:"2"`

	DownloadRoot string `envconfig:"DOWNLOAD_ROOT" default:"./downloads"`

	// DownloadBytesPerSecond paces the authenticated PDF-byte HTTP
	// client (golang.org/x/time/rate); 0 means unlimited.
	DownloadBytesPerSecond int `envconfig:"DOWNLOAD_BYTES_PER_SECOND" default:"0"`
}

// TaskTimeout is TaskTimeoutSeconds as a time.Duration.
func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSeconds) * time.Second
}

// StuckThreshold is StuckThresholdSeconds as a time.Duration.
func (c Config) StuckThreshold() time.Duration {
	return time.Duration(c.StuckThresholdSeconds) * time.Second
}

// WatchdogInterval is WatchdogIntervalSeconds as a time.Duration.
func (c Config) WatchdogInterval() time.Duration {
	return time.Duration(c.WatchdogIntervalSeconds) * time.Second
}

// Load reads Config from environment variables prefixed REFHARVEST_.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("refharvest", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Validate applies the bounds that matter for correctness rather than
// throughput tuning: concurrency above a handful of tabs remains
// correct but may degrade against a real site, so it is logged rather
// than rejected by the caller.
func (c Config) Validate() error {
	if c.ConcurrentContexts < 1 {
		return fmt.Errorf("config: concurrentContexts must be >= 1, got %d", c.ConcurrentContexts)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: maxRetries must be >= 0, got %d", c.MaxRetries)
	}
	return nil
}
