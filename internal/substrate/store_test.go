package substrate_test

import (
	"context"
	"testing"

	"loom/internal/ops"
	"loom/internal/substrate"
	"loom/internal/testsupport"
)

func TestCreateDumpRoundTrip(t *testing.T) {
	store := testsupport.MustOpenSubstrate(t, testsupport.NewConfig(t))
	ctx := context.Background()

	dump, err := store.CreateDump(ctx, "b1", "raw meeting notes", "slack-export")
	if err != nil {
		t.Fatalf("CreateDump: %v", err)
	}
	loaded, err := store.GetDump(ctx, dump.ID)
	if err != nil {
		t.Fatalf("GetDump: %v", err)
	}
	if loaded == nil || loaded.Body != "raw meeting notes" || loaded.SourceRef != "slack-export" {
		t.Fatalf("dump did not round-trip: %+v", loaded)
	}

	if _, err := store.CreateDump(ctx, "b1", "   ", ""); err == nil {
		t.Fatal("empty dump body must be rejected")
	}
}

func TestSnapshotFiltersStates(t *testing.T) {
	store := testsupport.MustOpenSubstrate(t, testsupport.NewConfig(t))
	ctx := context.Background()

	states := []substrate.BlockState{
		substrate.BlockProposed,
		substrate.BlockAccepted,
		substrate.BlockLocked,
		substrate.BlockConstant,
		substrate.BlockArchived,
	}
	for _, state := range states {
		if _, err := store.CreateBlock(ctx, substrate.Block{
			BasketID: "b1", WorkspaceID: "w1",
			Title: "block " + string(state), State: state,
		}); err != nil {
			t.Fatalf("CreateBlock %s: %v", state, err)
		}
	}

	itemID, err := store.CreateContextItem(ctx, substrate.ContextItem{BasketID: "b1", Label: "Pricing"})
	if err != nil {
		t.Fatalf("CreateContextItem: %v", err)
	}
	mergedID, err := store.CreateContextItem(ctx, substrate.ContextItem{BasketID: "b1", Label: "price"})
	if err != nil {
		t.Fatalf("CreateContextItem: %v", err)
	}
	if err := store.MergeContextItems(ctx, "b1", []string{mergedID}, itemID); err != nil {
		t.Fatalf("MergeContextItems: %v", err)
	}

	if _, err := store.CreateDocument(ctx, substrate.Document{BasketID: "b1", Title: "Q3 plan"}); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	snapshot, err := store.Snapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	// Only accepted-or-stronger blocks are visible to validation.
	if len(snapshot.Blocks) != 3 {
		t.Fatalf("expected 3 visible blocks, got %+v", snapshot.Blocks)
	}
	for _, block := range snapshot.Blocks {
		if !block.State.AcceptedOrStronger() {
			t.Fatalf("snapshot leaked block in state %s", block.State)
		}
	}
	// Merged items drop out of the snapshot.
	if len(snapshot.ContextItems) != 1 || snapshot.ContextItems[0].ID != itemID {
		t.Fatalf("expected only the canonical item, got %+v", snapshot.ContextItems)
	}
	if snapshot.ContextItems[0].NormalizedLabel != "pricing" {
		t.Fatalf("label not normalized: %+v", snapshot.ContextItems[0])
	}
	if snapshot.DocumentCount != 1 {
		t.Fatalf("expected 1 document, got %d", snapshot.DocumentCount)
	}
	if !snapshot.HasContextItem(itemID) || snapshot.HasContextItem(mergedID) {
		t.Fatal("HasContextItem disagrees with snapshot contents")
	}
}

func TestMergeContextItemsRequiresCanonical(t *testing.T) {
	store := testsupport.MustOpenSubstrate(t, testsupport.NewConfig(t))
	ctx := context.Background()

	fromID, err := store.CreateContextItem(ctx, substrate.ContextItem{BasketID: "b1", Label: "pricing"})
	if err != nil {
		t.Fatalf("CreateContextItem: %v", err)
	}
	if err := store.MergeContextItems(ctx, "b1", []string{fromID}, "missing"); err == nil {
		t.Fatal("merge into a missing canonical item must fail")
	}
}

func TestApplyDispatchesOperations(t *testing.T) {
	store := testsupport.MustOpenSubstrate(t, testsupport.NewConfig(t))
	ctx := context.Background()

	blockID, err := store.Apply(ctx, "b1", "w1", ops.NewCreateBlock("Market Analysis", "content", "insight", 0.7))
	if err != nil {
		t.Fatalf("Apply CreateBlock: %v", err)
	}
	blocks, err := store.ListBlocks(ctx, "b1", substrate.BlockAccepted)
	if err != nil {
		t.Fatalf("ListBlocks: %v", err)
	}
	// Governance-applied blocks land accepted, not proposed.
	if len(blocks) != 1 || blocks[0].ID != blockID {
		t.Fatalf("applied block not accepted: %+v", blocks)
	}

	itemID, err := store.Apply(ctx, "b1", "w1", ops.NewCreateContextItem("pricing", "topic", 0.8))
	if err != nil {
		t.Fatalf("Apply CreateContextItem: %v", err)
	}
	otherID, err := store.Apply(ctx, "b1", "w1", ops.NewCreateContextItem("price points", "topic", 0.8))
	if err != nil {
		t.Fatalf("Apply CreateContextItem: %v", err)
	}
	if _, err := store.Apply(ctx, "b1", "w1", ops.NewMergeContextItems([]string{otherID}, itemID)); err != nil {
		t.Fatalf("Apply MergeContextItems: %v", err)
	}
	items, err := store.ListContextItems(ctx, "b1")
	if err != nil {
		t.Fatalf("ListContextItems: %v", err)
	}
	var activeCount int
	for _, item := range items {
		if item.State == substrate.ItemActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected 1 active item after merge, got %+v", items)
	}

	if _, err := store.Apply(ctx, "b1", "w1", ops.Operation{Type: "DeleteBasket"}); err == nil {
		t.Fatal("unknown operation must not apply")
	}
}

func TestRelationships(t *testing.T) {
	store := testsupport.MustOpenSubstrate(t, testsupport.NewConfig(t))
	ctx := context.Background()

	relID, err := store.CreateRelationship(ctx, substrate.Relationship{
		BasketID: "b1", FromID: "blk-1", ToID: "blk-2", Strength: 0.5,
	})
	if err != nil || relID == "" {
		t.Fatalf("CreateRelationship: %v", err)
	}

	// Existence is direction-agnostic.
	for _, pair := range [][2]string{{"blk-1", "blk-2"}, {"blk-2", "blk-1"}} {
		exists, err := store.RelationshipExists(ctx, "b1", pair[0], pair[1])
		if err != nil || !exists {
			t.Fatalf("RelationshipExists(%v): %v, %v", pair, exists, err)
		}
	}
	exists, err := store.RelationshipExists(ctx, "b1", "blk-1", "blk-3")
	if err != nil || exists {
		t.Fatalf("unexpected relationship: %v, %v", exists, err)
	}
}

func TestTimelineEvents(t *testing.T) {
	store := testsupport.MustOpenSubstrate(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.AppendEvent(ctx, "b1", "dump.created", map[string]any{"dump_id": "d1"}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := store.AppendEvent(ctx, "b1", "pipeline.cascade", nil); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	dumps, err := store.ListEvents(ctx, "b1", "dump.created")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(dumps) != 1 || dumps[0].EventType != "dump.created" {
		t.Fatalf("unexpected events: %+v", dumps)
	}
	all, err := store.ListEvents(ctx, "b1", "")
	if err != nil {
		t.Fatalf("ListEvents all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %+v", all)
	}
}
