package main

import (
	"context"
	"testing"

	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestBuildDaemonWiresAllStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	d, err := buildDaemon(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildDaemon: %v", err)
	}
	defer d.Close()

	status, err := d.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Fatal("daemon should not be running before Start")
	}

	for _, stage := range []queue.WorkType{
		queue.WorkCapture, queue.WorkGovernance, queue.WorkGraph, queue.WorkReflection,
	} {
		health, ok := status.Handlers[stage]
		if !ok {
			t.Fatalf("missing handler for %s", stage)
		}
		if !health.Ready {
			t.Fatalf("%s handler not ready: %s", stage, health.Detail)
		}
	}
}
