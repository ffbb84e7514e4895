package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"loom/internal/cascade"
	"loom/internal/config"
	"loom/internal/lease"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/services"
)

// Manager drives the worker pool. Each worker claims a batch of ready
// entries, runs the matching stage handler, and hands successful results to
// the cascade coordinator. Workers never share an entry: the claim is the
// exclusion mechanism, and a worker that dies mid-entry is covered by lease
// staleness, not by anything the manager does.
type Manager struct {
	store    *queue.Store
	leases   *lease.Manager
	cascade  *cascade.Coordinator
	handlers   map[queue.WorkType]Handler
	workers    int
	poll       time.Duration
	errorRetry time.Duration
	logger     *slog.Logger
}

// NewManager wires the worker pool from configuration.
func NewManager(cfg *config.Config, store *queue.Store, leases *lease.Manager, coordinator *cascade.Coordinator, handlers []Handler, logger *slog.Logger) (*Manager, error) {
	byType := make(map[queue.WorkType]Handler, len(handlers))
	for _, handler := range handlers {
		if _, dup := byType[handler.WorkType()]; dup {
			return nil, fmt.Errorf("pipeline: duplicate handler for %s", handler.WorkType())
		}
		byType[handler.WorkType()] = handler
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	errorRetry := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if errorRetry <= 0 {
		errorRetry = poll
	}
	return &Manager{
		store:      store,
		leases:     leases,
		cascade:    coordinator,
		handlers:   byType,
		workers:    cfg.Workflow.Workers,
		poll:       poll,
		errorRetry: errorRetry,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Run blocks until the context is canceled, processing queue entries with the
// configured number of workers.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("pipeline started",
		logging.Int("workers", m.workers),
		logging.Duration("poll_interval", m.poll),
		logging.String(logging.FieldWorkerID, m.leases.WorkerID()))

	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < m.workers; i++ {
		worker := i
		group.Go(func() error {
			return m.workLoop(ctx, worker)
		})
	}
	err := group.Wait()
	if err != nil && ctx.Err() != nil {
		err = nil
	}
	m.logger.Info("pipeline stopped")
	return err
}

func (m *Manager) workLoop(ctx context.Context, worker int) error {
	for {
		entries, err := m.leases.ClaimBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.logger.Warn("claim failed",
				logging.Int("worker", worker),
				logging.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(m.errorRetry):
			}
			continue
		}

		if len(entries) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(m.poll):
			}
			continue
		}

		for _, entry := range entries {
			if ctx.Err() != nil {
				// Shutting down with an unstarted claim: hand it back so
				// another worker doesn't have to wait out the lease.
				if err := m.leases.Release(context.Background(), entry.ID); err != nil {
					m.logger.Warn("release failed",
						logging.Int64(logging.FieldEntryID, entry.ID),
						logging.Error(err))
				}
				continue
			}
			m.processEntry(ctx, entry)
		}
	}
}

// processEntry runs one claimed entry through its handler and the cascade.
// All failure handling converges here: the entry ends either completed or
// failed with a recorded message.
func (m *Manager) processEntry(ctx context.Context, entry *queue.Entry) {
	ctx = services.WithEntryID(ctx, entry.ID)
	ctx = services.WithStage(ctx, string(entry.WorkType))
	ctx = services.WithBasketID(ctx, entry.BasketID)
	log := logging.WithContext(ctx, m.logger)

	handler, ok := m.handlers[entry.WorkType]
	if !ok {
		m.fail(ctx, log, entry, fmt.Errorf("no handler registered for work type %q", entry.WorkType))
		return
	}

	if err := m.store.UpdateState(ctx, entry.ID, queue.StateProcessing, ""); err != nil {
		log.Warn("state update failed", logging.Error(err))
		return
	}

	started := time.Now()
	result, err := handler.Process(ctx, entry)
	if err != nil {
		m.fail(ctx, log, entry, err)
		return
	}

	if err := m.store.UpdateState(ctx, entry.ID, queue.StateCascading, ""); err != nil {
		log.Warn("state update failed", logging.Error(err))
	}
	m.cascade.Trigger(ctx, cascade.Event{
		BasketID:     entry.BasketID,
		WorkspaceID:  entry.WorkspaceID,
		SourceStage:  entry.WorkType,
		Result:       result,
		ParentWorkID: &entry.ID,
	})

	if err := m.store.UpdateState(ctx, entry.ID, queue.StateCompleted, ""); err != nil {
		log.Warn("state update failed", logging.Error(err))
		return
	}
	log.Info("entry completed",
		logging.Duration("elapsed", time.Since(started)))
}

func (m *Manager) fail(ctx context.Context, log *slog.Logger, entry *queue.Entry, procErr error) {
	log.Error("entry failed",
		logging.String(logging.FieldErrorKind, services.Kind(procErr)),
		logging.Int("attempts", entry.Attempts),
		logging.Error(procErr))
	if err := m.store.UpdateState(ctx, entry.ID, queue.StateFailed, procErr.Error()); err != nil {
		log.Warn("state update failed", logging.Error(err))
	}
}

// HealthCheck aggregates per-handler readiness, keyed by stage.
func (m *Manager) HealthCheck(ctx context.Context) map[queue.WorkType]Health {
	health := make(map[queue.WorkType]Health, len(m.handlers))
	for workType, handler := range m.handlers {
		health[workType] = handler.HealthCheck(ctx)
	}
	return health
}
