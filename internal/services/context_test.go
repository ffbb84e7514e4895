package services_test

import (
	"context"
	"testing"

	"loom/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEntryID(ctx, 42)
	ctx = services.WithStage(ctx, "governance")
	ctx = services.WithBasketID(ctx, "basket-9")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.EntryIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected entry id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "governance" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if basket, ok := services.BasketIDFromContext(ctx); !ok || basket != "basket-9" {
		t.Fatalf("unexpected basket: %v %v", basket, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithBasketID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.BasketIDFromContext(ctx); ok {
		t.Fatal("expected no basket value")
	}
}
