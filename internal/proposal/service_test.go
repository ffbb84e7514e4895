package proposal_test

import (
	"context"
	"errors"
	"testing"

	"loom/internal/cascade"
	"loom/internal/logging"
	"loom/internal/ops"
	"loom/internal/proposal"
	"loom/internal/queue"
	"loom/internal/substrate"
	"loom/internal/testsupport"
	"loom/internal/validation"
)

type captureTrigger struct {
	events []cascade.Event
}

func (c *captureTrigger) Trigger(_ context.Context, event cascade.Event) {
	c.events = append(c.events, event)
}

type testFixture struct {
	substrate *substrate.Store
	store     *proposal.Store
	service   *proposal.Service
	trigger   *captureTrigger
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	sub := testsupport.MustOpenSubstrate(t, cfg)
	store := proposal.NewStore(sub.DB())
	trigger := &captureTrigger{}
	service := proposal.NewService(store, sub, sub, trigger, logging.NewNop())
	return &testFixture{substrate: sub, store: store, service: service, trigger: trigger}
}

func blockOps() []ops.Operation {
	return []ops.Operation{
		ops.NewCreateBlock("Market Analysis", "competitive landscape for Q3", "insight", 0.7),
		ops.NewCreateContextItem("pricing", "topic", 0.8),
	}
}

func newProposal(basketID string) *proposal.Proposal {
	return &proposal.Proposal{
		BasketID:    basketID,
		WorkspaceID: "ws-test",
		Kind:        proposal.KindExtraction,
		Origin:      proposal.OriginAgent,
		Ops:         blockOps(),
		Report:      &validation.Report{Confidence: 0.75, ImpactSummary: "2 operations"},
		Provenance:  []string{"dump-1"},
	}
}

func TestCreateStartsProposed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, newProposal("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.Status != proposal.StatusProposed {
		t.Fatalf("unexpected created proposal: %+v", created)
	}
	if created.IsExecuted {
		t.Fatal("new proposal must not be executed")
	}
	if created.Report == nil || created.Report.Confidence != 0.75 {
		t.Fatalf("validator report not persisted: %+v", created.Report)
	}
	if len(created.Ops) != 2 || created.Ops[0].Type != ops.TypeCreateBlock {
		t.Fatalf("ops not persisted in order: %+v", created.Ops)
	}

	events, err := f.substrate.ListEvents(ctx, "b1", proposal.EventTypeCreated)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one created event, got %d", len(events))
	}
}

func TestApproveExecutesAndCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, newProposal("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	executed, err := f.service.Approve(ctx, created.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if executed.Status != proposal.StatusExecuted || !executed.IsExecuted {
		t.Fatalf("expected executed proposal, got %+v", executed)
	}
	if executed.ExecutedAt == nil {
		t.Fatal("executed_at not set")
	}
	if len(executed.ExecutionLog) != 2 {
		t.Fatalf("expected 2 execution log lines, got %+v", executed.ExecutionLog)
	}
	for _, line := range executed.ExecutionLog {
		if !line.Succeeded || line.UnitID == "" {
			t.Fatalf("operation did not succeed: %+v", line)
		}
	}

	// The operations actually landed in the substrate as accepted units.
	snapshot, err := f.substrate.Snapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snapshot.Blocks) != 1 || snapshot.Blocks[0].Title != "Market Analysis" {
		t.Fatalf("block not applied: %+v", snapshot.Blocks)
	}
	if len(snapshot.ContextItems) != 1 {
		t.Fatalf("context item not applied: %+v", snapshot.ContextItems)
	}

	if len(f.trigger.events) != 1 {
		t.Fatalf("expected one cascade event, got %d", len(f.trigger.events))
	}
	event := f.trigger.events[0]
	if event.SourceStage != queue.WorkGovernance {
		t.Fatalf("cascade source: got %s, want governance", event.SourceStage)
	}
	if event.Result["proposals_created"] != 1 {
		t.Fatalf("cascade result: %+v", event.Result)
	}
}

func TestRejectIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, newProposal("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rejected, err := f.service.Reject(ctx, created.ID, "duplicate of existing work")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != proposal.StatusRejected || rejected.ReviewReason != "duplicate of existing work" {
		t.Fatalf("unexpected rejected proposal: %+v", rejected)
	}

	if _, err := f.service.Approve(ctx, created.ID); !errors.Is(err, proposal.ErrInvalidTransition) {
		t.Fatalf("approve after reject: got %v, want ErrInvalidTransition", err)
	}

	// Rejection never touches the substrate.
	snapshot, err := f.substrate.Snapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snapshot.Blocks) != 0 {
		t.Fatalf("rejected proposal mutated the substrate: %+v", snapshot.Blocks)
	}
}

func TestExecuteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, newProposal("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.service.Approve(ctx, created.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if _, err := f.service.Execute(ctx, created.ID); !errors.Is(err, proposal.ErrAlreadyExecuted) {
		t.Fatalf("second execute: got %v, want ErrAlreadyExecuted", err)
	}

	snapshot, err := f.substrate.Snapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snapshot.Blocks) != 1 {
		t.Fatalf("operations applied more than once: %+v", snapshot.Blocks)
	}
}

func TestExecuteRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, newProposal("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.service.Execute(ctx, created.ID); !errors.Is(err, proposal.ErrInvalidTransition) {
		t.Fatalf("execute while proposed: got %v, want ErrInvalidTransition", err)
	}
}

func TestExecuteRecordsOpFailureWithoutRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Second op merges context items that don't exist; third still runs.
	p := newProposal("b1")
	p.Ops = []ops.Operation{
		ops.NewCreateBlock("Alpha", "first block content", "", 0.5),
		ops.NewMergeContextItems([]string{"ci-missing"}, "ci-also-missing"),
		ops.NewCreateContextItem("pricing", "topic", 0.8),
	}
	created, err := f.service.Create(ctx, p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	executed, err := f.service.Approve(ctx, created.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if executed.Status != proposal.StatusExecuted {
		t.Fatalf("op failure must not block execution: %+v", executed)
	}
	if len(executed.ExecutionLog) != 3 {
		t.Fatalf("expected 3 log lines, got %+v", executed.ExecutionLog)
	}
	if executed.ExecutionLog[0].Error != "" || executed.ExecutionLog[1].Error == "" || executed.ExecutionLog[2].Error != "" {
		t.Fatalf("unexpected per-op outcomes: %+v", executed.ExecutionLog)
	}

	snapshot, err := f.substrate.Snapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snapshot.Blocks) != 1 || len(snapshot.ContextItems) != 1 {
		t.Fatalf("surviving ops not applied: %+v", snapshot)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.GetByID(context.Background(), "nope"); !errors.Is(err, proposal.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Create(ctx, newProposal("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := f.service.Create(ctx, newProposal("b1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.service.Reject(ctx, second.ID, "not needed"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	pending, err := f.store.List(ctx, "b1", proposal.StatusProposed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Fatalf("expected only the unreviewed proposal, got %+v", pending)
	}

	all, err := f.store.List(ctx, "b1", "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(all))
	}
}
