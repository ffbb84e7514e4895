package config

const (
	defaultDataDir            = "~/.local/share/loom"
	defaultLogDir             = "~/.local/share/loom/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultLeaseStaleAfter    = 300
	defaultWorkers            = 2
	defaultClaimBatchSize     = 5
	defaultExtractionTimeout  = 60
	defaultMinConfidence      = 0.3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			LeaseStaleAfter:    defaultLeaseStaleAfter,
			Workers:            defaultWorkers,
			ClaimBatchSize:     defaultClaimBatchSize,
		},
		Extraction: Extraction{
			TimeoutSeconds: defaultExtractionTimeout,
			MinConfidence:  defaultMinConfidence,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
