package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/pipeline"
	"loom/internal/queue"
	"loom/internal/substrate"
)

// Daemon runs the pipeline workers behind a single-instance file lock.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	queue     *queue.Store
	substrate *substrate.Store
	manager   *pipeline.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Queue        queue.HealthSummary
	Handlers     map[queue.WorkType]pipeline.Health
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, queueStore *queue.Store, substrateStore *substrate.Store, manager *pipeline.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || queueStore == nil || substrateStore == nil || manager == nil {
		return nil, errors.New("daemon requires config, stores, and pipeline manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockFilePath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		queue:     queueStore,
		substrate: substrateStore,
		manager:   manager,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the pipeline workers. It
// returns once the workers are running; Wait blocks until they stop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another loom daemon holds %s", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)

	go func() {
		defer close(d.done)
		d.runErr = d.manager.Run(runCtx)
		d.running.Store(false)
	}()

	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Wait blocks until the pipeline workers stop and returns their error, if any.
func (d *Daemon) Wait() error {
	if d.done == nil {
		return nil
	}
	<-d.done
	return d.runErr
}

// Stop cancels the workers, waits for them to drain, and releases the lock.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if d.lock.Locked() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("release daemon lock", logging.Error(err))
		}
		d.logger.Info("daemon stopped")
	}
	d.running.Store(false)
}

// Close stops the daemon and closes its stores.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if err := d.queue.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close queue store: %w", err))
	}
	if err := d.substrate.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close substrate store: %w", err))
	}
	return errors.Join(errs...)
}

// Status reports queue depth and per-stage handler health.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	summary, err := d.queue.Health(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("queue health: %w", err)
	}
	return Status{
		Running:      d.running.Load(),
		Queue:        summary,
		Handlers:     d.manager.HealthCheck(ctx),
		QueueDBPath:  d.cfg.QueueDatabasePath(),
		LockFilePath: d.lockPath,
	}, nil
}
