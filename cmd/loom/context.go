package main

import (
	"strings"
	"sync"

	"loom/internal/cascade"
	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/proposal"
	"loom/internal/queue"
	"loom/internal/substrate"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
		c.configExists = exists
	})
	return c.config, c.configErr
}

// resolvedConfig reports the configuration along with where it was loaded
// from and whether a file was actually present.
func (c *commandContext) resolvedConfig() (*config.Config, string, bool, error) {
	cfg, err := c.ensureConfig()
	return cfg, c.configPath, c.configExists, err
}

// withQueue opens the queue store for the duration of one command.
func (c *commandContext) withQueue(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// withSubstrate opens the substrate store for the duration of one command.
func (c *commandContext) withSubstrate(fn func(*substrate.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := substrate.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// withProposals wires the full proposal service, cascade included, so an
// approval issued from the CLI continues the pipeline exactly as the daemon
// would.
func (c *commandContext) withProposals(fn func(*proposal.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	queueStore, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer queueStore.Close()
	substrateStore, err := substrate.Open(cfg)
	if err != nil {
		return err
	}
	defer substrateStore.Close()

	logger := logging.NewNop()
	coordinator, err := cascade.NewCoordinator(queueStore, substrateStore, logger)
	if err != nil {
		return err
	}
	store := proposal.NewStore(substrateStore.DB())
	return fn(proposal.NewService(store, substrateStore, substrateStore, coordinator, logger))
}
