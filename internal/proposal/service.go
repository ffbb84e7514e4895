package proposal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loom/internal/cascade"
	"loom/internal/logging"
	"loom/internal/ops"
	"loom/internal/queue"
	"loom/internal/services"
)

// Applier executes one approved operation against the substrate. Satisfied by
// *substrate.Store.
type Applier interface {
	Apply(ctx context.Context, basketID, workspaceID string, op ops.Operation) (string, error)
}

// EventAppender records proposal lifecycle events on the basket timeline.
// Satisfied by *substrate.Store.
type EventAppender interface {
	AppendEvent(ctx context.Context, basketID, eventType string, payload map[string]any) error
}

// Trigger receives completed-work events for cascade evaluation. Satisfied by
// *cascade.Coordinator.
type Trigger interface {
	Trigger(ctx context.Context, event cascade.Event)
}

// Timeline event types for the proposal lifecycle.
const (
	EventTypeCreated  = "proposal.created"
	EventTypeApproved = "proposal.approved"
	EventTypeRejected = "proposal.rejected"
	EventTypeExecuted = "proposal.executed"
)

// Service runs the proposal lifecycle: creation, review decisions, idempotent
// execution, and the governance cascade that follows execution.
type Service struct {
	store    *Store
	applier  Applier
	timeline EventAppender
	cascade  Trigger
	logger   *slog.Logger
}

// NewService wires the proposal lifecycle over its collaborators. The cascade
// trigger may be nil when no pipeline continuation is wanted (tests, CLI
// inspection paths).
func NewService(store *Store, applier Applier, timeline EventAppender, trigger Trigger, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		applier:  applier,
		timeline: timeline,
		cascade:  trigger,
		logger:   logging.NewComponentLogger(logger, "proposal"),
	}
}

// Store exposes the underlying store for read paths.
func (s *Service) Store() *Store {
	return s.store
}

// Create persists a new proposal in PROPOSED status and records its creation
// on the timeline.
func (s *Service) Create(ctx context.Context, p *Proposal) (*Proposal, error) {
	created, err := s.store.Create(ctx, p)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "governance", "create_proposal", "persist proposal", err)
	}
	s.appendEvent(ctx, created, EventTypeCreated, map[string]any{
		"ops_count": len(created.Ops),
		"origin":    created.Origin,
	})
	s.logger.Info("proposal created",
		logging.String(logging.FieldProposalID, created.ID),
		logging.String(logging.FieldBasketID, created.BasketID),
		logging.Int("ops_count", len(created.Ops)))
	return created, nil
}

// Approve moves a proposal to APPROVED, executes its operations, and reports
// the execution to the cascade coordinator so the pipeline continues into the
// graph stage. Execution failures surface to the caller; the approval itself
// is already durable by then.
func (s *Service) Approve(ctx context.Context, id string) (*Proposal, error) {
	if err := s.store.Approve(ctx, id); err != nil {
		return nil, err
	}
	approved, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, approved, EventTypeApproved, nil)

	executed, err := s.Execute(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cascade != nil {
		s.cascade.Trigger(ctx, cascade.Event{
			BasketID:    executed.BasketID,
			WorkspaceID: executed.WorkspaceID,
			SourceStage: queue.WorkGovernance,
			Result:      map[string]any{"proposals_created": 1},
			Metadata:    map[string]any{"proposal_id": executed.ID},
		})
	}
	return executed, nil
}

// Reject moves a proposal to REJECTED with a review reason. Rejected
// proposals never touch the substrate.
func (s *Service) Reject(ctx context.Context, id, reason string) (*Proposal, error) {
	if err := s.store.Reject(ctx, id, reason); err != nil {
		return nil, err
	}
	rejected, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, rejected, EventTypeRejected, map[string]any{"reason": reason})
	s.logger.Info("proposal rejected",
		logging.String(logging.FieldProposalID, id),
		logging.String("reason", reason))
	return rejected, nil
}

// Execute applies an APPROVED proposal's operations in order. The execution
// claim is a compare-and-set, so concurrent callers apply the batch at most
// once; a proposal that already executed returns ErrAlreadyExecuted. Each
// operation stands alone: a failure is logged to the execution record and the
// remaining operations still run.
func (s *Service) Execute(ctx context.Context, id string) (*Proposal, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.claimExecution(ctx, id); err != nil {
		if errors.Is(err, ErrAlreadyExecuted) {
			// Prior outcome stands; hand it back with the sentinel so the
			// caller can tell a repeat from a first run.
			return p, err
		}
		return nil, err
	}

	log := make([]OpResult, 0, len(p.Ops))
	succeeded := 0
	for index, op := range p.Ops {
		result := OpResult{Index: index, Type: op.Name()}
		unitID, applyErr := s.applier.Apply(ctx, p.BasketID, p.WorkspaceID, op)
		if applyErr != nil {
			result.Error = applyErr.Error()
			s.logger.Warn("operation failed during execution",
				logging.String(logging.FieldProposalID, id),
				logging.Int("op_index", index),
				logging.String("op_type", op.Name()),
				logging.Error(applyErr))
		} else {
			result.UnitID = unitID
			result.Succeeded = true
			succeeded++
		}
		log = append(log, result)
	}

	if err := s.store.recordExecution(ctx, id, log); err != nil {
		return nil, err
	}
	executed, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, executed, EventTypeExecuted, map[string]any{
		"ops_total":     len(p.Ops),
		"ops_succeeded": succeeded,
	})
	s.logger.Info("proposal executed",
		logging.String(logging.FieldProposalID, id),
		logging.Int("ops_total", len(p.Ops)),
		logging.Int("ops_succeeded", succeeded))
	return executed, nil
}

func (s *Service) appendEvent(ctx context.Context, p *Proposal, eventType string, extra map[string]any) {
	if s.timeline == nil {
		return
	}
	payload := map[string]any{
		"proposal_id": p.ID,
		"status":      string(p.Status),
	}
	for key, value := range extra {
		payload[key] = value
	}
	if err := s.timeline.AppendEvent(ctx, p.BasketID, eventType, payload); err != nil {
		s.logger.Warn("timeline event failed",
			logging.String(logging.FieldProposalID, p.ID),
			logging.String(logging.FieldEventType, eventType),
			logging.Error(err))
	}
}

// Summarize renders a short operator-facing description of a proposal's
// contents for CLI listings.
func Summarize(p *Proposal) string {
	counts := make(map[string]int)
	for _, op := range p.Ops {
		counts[op.Name()]++
	}
	if len(counts) == 0 {
		return "no operations"
	}
	summary := ""
	for _, name := range []string{string(ops.TypeCreateBlock), string(ops.TypeCreateContextItem), string(ops.TypeMergeContextItems)} {
		if count, ok := counts[name]; ok {
			if summary != "" {
				summary += ", "
			}
			summary += fmt.Sprintf("%d %s", count, name)
		}
	}
	if summary == "" {
		summary = fmt.Sprintf("%d operations", len(p.Ops))
	}
	return summary
}
