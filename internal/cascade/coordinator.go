package cascade

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"loom/internal/logging"
	"loom/internal/queue"
)

// Enqueuer accepts new work entries. Satisfied by *queue.Store.
type Enqueuer interface {
	Enqueue(ctx context.Context, entry *queue.Entry) (*queue.Entry, error)
}

// EventAppender records pipeline events on the basket timeline. Satisfied by
// *substrate.Store.
type EventAppender interface {
	AppendEvent(ctx context.Context, basketID, eventType string, payload map[string]any) error
}

// EventTypeCascade is the timeline event type emitted for every cascade hop.
const EventTypeCascade = "pipeline.cascade"

// Event is one completed unit of stage work offered to the coordinator.
type Event struct {
	BasketID     string
	WorkspaceID  string
	SourceStage  queue.WorkType
	Result       map[string]any
	ParentWorkID *int64
	// Metadata carries caller context (proposal id, dump id) folded into the
	// cascaded entry's payload alongside the stage result.
	Metadata map[string]any
}

// Coordinator decides, after each completed unit of work, whether the
// pipeline continues. Cascade failures never propagate: a stage's own success
// stands even when the follow-on enqueue fails, so every error path here logs
// and returns.
type Coordinator struct {
	rules    *RuleSet
	entries  Enqueuer
	timeline EventAppender
	logger   *slog.Logger
	clock    func() time.Time
}

// NewCoordinator builds a coordinator over the embedded default rules.
func NewCoordinator(entries Enqueuer, timeline EventAppender, logger *slog.Logger) (*Coordinator, error) {
	rules, err := DefaultRules()
	if err != nil {
		return nil, err
	}
	return NewCoordinatorWithRules(rules, entries, timeline, logger), nil
}

// NewCoordinatorWithRules builds a coordinator over an explicit rule set.
func NewCoordinatorWithRules(rules *RuleSet, entries Enqueuer, timeline EventAppender, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		rules:    rules,
		entries:  entries,
		timeline: timeline,
		logger:   logging.NewComponentLogger(logger, "cascade"),
		clock:    time.Now,
	}
}

// Trigger evaluates the cascade rules for a completed unit of work and, when
// a rule fires, enqueues the next stage and records a timeline event. It has
// no error return: a cascade that cannot proceed is logged, never surfaced.
func (c *Coordinator) Trigger(ctx context.Context, event Event) {
	log := c.logger.With(
		logging.String(logging.FieldBasketID, event.BasketID),
		logging.String(logging.FieldStage, string(event.SourceStage)),
	)

	if c.rules.IsTerminal(event.SourceStage) {
		log.Debug("terminal stage, pipeline complete")
		return
	}
	rule, ok := c.rules.Lookup(event.SourceStage)
	if !ok {
		log.Debug("no cascade rule for stage")
		return
	}
	if !rule.Condition.Evaluate(event.Result) {
		log.Debug("cascade condition not met",
			logging.String("condition_field", rule.Condition.Field))
		return
	}

	now := c.clock().UTC()
	payload := map[string]any{
		"source_stage": string(event.SourceStage),
		"trigger_time": now.Format(time.RFC3339Nano),
		"rule":         rule.Description,
	}
	for key, value := range event.Result {
		payload[key] = value
	}
	for key, value := range event.Metadata {
		payload[key] = value
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		log.Error("cascade payload encoding failed", logging.Error(err))
		return
	}

	entry := &queue.Entry{
		WorkType:     rule.Next,
		BasketID:     event.BasketID,
		WorkspaceID:  event.WorkspaceID,
		PayloadJSON:  string(payloadJSON),
		ParentWorkID: event.ParentWorkID,
	}
	if delay := rule.Delay(); delay > 0 {
		availableAt := now.Add(delay)
		entry.AvailableAt = &availableAt
	}

	created, err := c.entries.Enqueue(ctx, entry)
	if err != nil {
		log.Error("cascade enqueue failed",
			logging.String("target_stage", string(rule.Next)),
			logging.Error(err))
		return
	}
	log.Info("cascaded to next stage",
		logging.String("target_stage", string(rule.Next)),
		logging.Int64(logging.FieldEntryID, created.ID))

	if c.timeline == nil {
		return
	}
	eventPayload := map[string]any{
		"source_stage": string(event.SourceStage),
		"target_stage": string(rule.Next),
		"new_entry_id": created.ID,
		"trigger_time": now.Format(time.RFC3339Nano),
	}
	if err := c.timeline.AppendEvent(ctx, event.BasketID, EventTypeCascade, eventPayload); err != nil {
		log.Warn("cascade timeline event failed", logging.Error(err))
	}
}
