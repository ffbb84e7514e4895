package daemon_test

import (
	"context"
	"testing"
	"time"

	"loom/internal/cascade"
	"loom/internal/config"
	"loom/internal/daemon"
	"loom/internal/lease"
	"loom/internal/logging"
	"loom/internal/pipeline"
	"loom/internal/queue"
	"loom/internal/substrate"
	"loom/internal/testsupport"
)

func newTestDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *queue.Store, *substrate.Store) {
	t.Helper()

	store := testsupport.MustOpenQueue(t, cfg)
	sub := testsupport.MustOpenSubstrate(t, cfg)
	logger := logging.NewNop()

	coordinator, err := cascade.NewCoordinator(store, sub, logger)
	if err != nil {
		t.Fatalf("cascade.NewCoordinator: %v", err)
	}
	leases := lease.New(store, time.Minute, 5)
	manager, err := pipeline.NewManager(cfg, store, leases, coordinator,
		[]pipeline.Handler{pipeline.NewCaptureHandler(sub, logger)}, logger)
	if err != nil {
		t.Fatalf("pipeline.NewManager: %v", err)
	}

	d, err := daemon.New(cfg, store, sub, manager, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, store, sub
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	first, _, _ := newTestDaemon(t, cfg)
	second, _, _ := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second daemon to fail while lock is held")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	d, store, _ := newTestDaemon(t, cfg)
	testsupport.Enqueue(t, store, queue.WorkCapture, "basket-status")

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	status, err := d.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.Queue.Total == 0 {
		t.Fatal("expected queued work in status")
	}
	health, ok := status.Handlers[queue.WorkCapture]
	if !ok {
		t.Fatal("expected capture handler health")
	}
	if !health.Ready {
		t.Fatalf("capture handler not ready: %s", health.Detail)
	}
	if status.LockFilePath != cfg.LockFilePath() {
		t.Fatalf("lock path = %s, want %s", status.LockFilePath, cfg.LockFilePath())
	}
}
