// Package pipeline runs the staged processing loop: workers claim queue
// entries, dispatch them to per-stage handlers, and feed each completed
// result to the cascade coordinator so follow-on stages are enqueued.
package pipeline

import (
	"context"

	"loom/internal/queue"
)

// Result is the structured outcome a handler reports for one entry. The
// cascade coordinator evaluates its numeric fields against the rule
// conditions, so handlers use stable field names (dumps_created,
// proposals_created, connections_mapped, reflections_created).
type Result map[string]any

// Health is one handler's readiness verdict.
type Health struct {
	Ready  bool
	Detail string
}

// Handler processes one stage's work entries.
type Handler interface {
	// WorkType names the stage this handler serves.
	WorkType() queue.WorkType
	// Process performs the work for one claimed entry. A returned error
	// fails the entry; the result of a successful entry drives the cascade.
	Process(ctx context.Context, entry *queue.Entry) (Result, error)
	// HealthCheck reports whether the handler can currently do useful work.
	HealthCheck(ctx context.Context) Health
}
