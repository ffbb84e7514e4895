package testsupport

import (
	"context"
	"testing"

	"loom/internal/config"
	"loom/internal/queue"
	"loom/internal/substrate"
)

// MustOpenQueue opens a queue.Store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenSubstrate opens a substrate.Store for tests and registers cleanup.
func MustOpenSubstrate(t testing.TB, cfg *config.Config) *substrate.Store {
	t.Helper()

	store, err := substrate.Open(cfg)
	if err != nil {
		t.Fatalf("substrate.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a queue entry for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, workType queue.WorkType, basketID string) *queue.Entry {
	t.Helper()

	entry, err := store.Enqueue(context.Background(), &queue.Entry{
		WorkType:    workType,
		BasketID:    basketID,
		WorkspaceID: "ws-test",
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return entry
}
