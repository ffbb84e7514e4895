// Package lease gives each worker a stable identity and applies the staleness
// policy to queue claims. It is a thin wrapper: the atomicity lives in
// queue.Store.ClaimBatch, the lease only decides how old a competing claim
// must be before this worker may take it over.
package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"loom/internal/queue"
)

// Manager holds one worker's claim identity and staleness policy.
type Manager struct {
	store      *queue.Store
	workerID   string
	staleAfter time.Duration
	batchSize  int
}

// New constructs a lease manager with a generated worker identity.
func New(store *queue.Store, staleAfter time.Duration, batchSize int) *Manager {
	return NewWithWorkerID(store, fmt.Sprintf("loomd-%s", uuid.NewString()[:8]), staleAfter, batchSize)
}

// NewWithWorkerID constructs a lease manager with an explicit worker identity
// (used in tests and diagnostics).
func NewWithWorkerID(store *queue.Store, workerID string, staleAfter time.Duration, batchSize int) *Manager {
	return &Manager{
		store:      store,
		workerID:   workerID,
		staleAfter: staleAfter,
		batchSize:  batchSize,
	}
}

// WorkerID returns the claim owner identity used by this manager.
func (m *Manager) WorkerID() string {
	return m.workerID
}

// StaleAfter returns the staleness window applied to competing claims.
func (m *Manager) StaleAfter() time.Duration {
	return m.staleAfter
}

// ClaimBatch claims up to the configured batch size of ready entries for this
// worker. An empty result means no work is available; transient claim errors
// are returned to the caller, which resolves them by polling again.
func (m *Manager) ClaimBatch(ctx context.Context) ([]*queue.Entry, error) {
	return m.store.ClaimBatch(ctx, m.workerID, m.batchSize, m.staleAfter)
}

// Release returns a claimed entry to pending without recording an error, used
// when a worker shuts down before starting work on an entry it claimed.
func (m *Manager) Release(ctx context.Context, entryID int64) error {
	return m.store.UpdateState(ctx, entryID, queue.StatePending, "")
}
