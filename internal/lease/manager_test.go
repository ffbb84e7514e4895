package lease_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"loom/internal/lease"
	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestNewGeneratesWorkerIdentity(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))

	first := lease.New(store, time.Minute, 5)
	second := lease.New(store, time.Minute, 5)
	if !strings.HasPrefix(first.WorkerID(), "loomd-") {
		t.Fatalf("unexpected worker id %q", first.WorkerID())
	}
	if first.WorkerID() == second.WorkerID() {
		t.Fatal("worker identities must be unique")
	}
	if first.StaleAfter() != time.Minute {
		t.Fatalf("unexpected staleness window %v", first.StaleAfter())
	}
}

func TestClaimBatchUsesWorkerIdentity(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, queue.WorkCapture, "b1")
	manager := lease.NewWithWorkerID(store, "worker-x", time.Minute, 5)

	claimed, err := manager.ClaimBatch(ctx)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ClaimedBy != "worker-x" {
		t.Fatalf("unexpected claim: %+v", claimed)
	}
}

func TestReleaseReturnsEntryToPending(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, queue.WorkCapture, "b1")
	manager := lease.NewWithWorkerID(store, "worker-x", time.Minute, 5)

	claimed, err := manager.ClaimBatch(ctx)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("ClaimBatch: %v, %v", claimed, err)
	}
	if err := manager.Release(ctx, claimed[0].ID); err != nil {
		t.Fatalf("Release: %v", err)
	}

	entry, err := store.GetByID(ctx, claimed[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if entry.State != queue.StatePending {
		t.Fatalf("released entry should be pending, got %s", entry.State)
	}

	// Another worker can pick it up immediately without waiting out the lease.
	other := lease.NewWithWorkerID(store, "worker-y", time.Hour, 5)
	reclaimed, err := other.ClaimBatch(ctx)
	if err != nil || len(reclaimed) != 1 {
		t.Fatalf("reclaim after release: %v, %v", reclaimed, err)
	}
}
