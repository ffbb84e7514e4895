package main

import (
	"log/slog"
	"time"

	"loom/internal/cascade"
	"loom/internal/config"
	"loom/internal/daemon"
	"loom/internal/extraction"
	"loom/internal/lease"
	"loom/internal/pipeline"
	"loom/internal/proposal"
	"loom/internal/queue"
	"loom/internal/substrate"
	"loom/internal/validation"
)

// buildDaemon wires stores, the cascade coordinator, and one handler per
// pipeline stage into a runnable daemon.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	queueStore, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	substrateStore, err := substrate.Open(cfg)
	if err != nil {
		queueStore.Close()
		return nil, err
	}

	coordinator, err := cascade.NewCoordinator(queueStore, substrateStore, logger)
	if err != nil {
		queueStore.Close()
		substrateStore.Close()
		return nil, err
	}

	extractor := extraction.NewExtractor(cfg.Extraction)
	engine := validation.NewEngine(substrateStore, logger)
	proposals := proposal.NewService(
		proposal.NewStore(substrateStore.DB()),
		substrateStore, substrateStore, coordinator, logger,
	)

	handlers := []pipeline.Handler{
		pipeline.NewCaptureHandler(substrateStore, logger),
		pipeline.NewGovernanceHandler(substrateStore, extractor, engine, proposals, cfg.Extraction.MinConfidence, logger),
		pipeline.NewGraphHandler(substrateStore, logger),
		pipeline.NewReflectionHandler(substrateStore, logger),
	}

	leases := lease.New(queueStore,
		time.Duration(cfg.Workflow.LeaseStaleAfter)*time.Second,
		cfg.Workflow.ClaimBatchSize)
	manager, err := pipeline.NewManager(cfg, queueStore, leases, coordinator, handlers, logger)
	if err != nil {
		queueStore.Close()
		substrateStore.Close()
		return nil, err
	}

	return daemon.New(cfg, queueStore, substrateStore, manager, logger)
}
