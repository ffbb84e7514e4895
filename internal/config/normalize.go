package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeExtraction()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	expandedData, err := expandPath(c.Paths.DataDir)
	if err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if expandedData != "" {
		c.Paths.DataDir = expandedData
	}

	expandedLog, err := expandPath(c.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	if expandedLog != "" {
		c.Paths.LogDir = expandedLog
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.ClaimBatchSize <= 0 {
		c.Workflow.ClaimBatchSize = defaultClaimBatchSize
	}
}

func (c *Config) normalizeExtraction() {
	c.Extraction.Endpoint = strings.TrimSpace(c.Extraction.Endpoint)
	if c.Extraction.TimeoutSeconds <= 0 {
		c.Extraction.TimeoutSeconds = defaultExtractionTimeout
	}
	if c.Extraction.MinConfidence <= 0 {
		c.Extraction.MinConfidence = defaultMinConfidence
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
