package config

import (
	"errors"
	"fmt"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return errors.New("config: data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("config: log_dir must be set")
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Extraction.MinConfidence < 0 || c.Extraction.MinConfidence > 1 {
		return fmt.Errorf("config: extraction min_confidence must be within [0,1], got %v", c.Extraction.MinConfidence)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.LeaseStaleAfter <= 0 {
		return errors.New("config: workflow lease_stale_after must be positive")
	}
	if c.Workflow.LeaseStaleAfter <= c.Workflow.QueuePollInterval {
		return fmt.Errorf(
			"config: workflow lease_stale_after (%ds) must exceed queue_poll_interval (%ds)",
			c.Workflow.LeaseStaleAfter, c.Workflow.QueuePollInterval,
		)
	}
	if c.Workflow.Workers > 64 {
		return fmt.Errorf("config: workflow workers %d is unreasonably high", c.Workflow.Workers)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: logging format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging level %q is not recognized", c.Logging.Level)
	}
	return nil
}
