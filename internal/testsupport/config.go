// Package testsupport provides shared helpers for package tests: temp-dir
// configs and store constructors with registered cleanup.
package testsupport

import (
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.LeaseStaleAfter = 60

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithWorkers overrides the worker count on the test config.
func WithWorkers(n int) ConfigOption {
	return func(c *config.Config) {
		c.Workflow.Workers = n
	}
}

// WithLeaseStaleAfter overrides the lease staleness window (seconds).
func WithLeaseStaleAfter(seconds int) ConfigOption {
	return func(c *config.Config) {
		c.Workflow.LeaseStaleAfter = seconds
	}
}
