package services_test

import (
	"errors"
	"fmt"
	"testing"

	"loom/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "governance", "build ops", "bad candidate", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if services.Kind(err) != "validation" {
		t.Fatalf("unexpected kind: %q", services.Kind(err))
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := services.Wrap(services.ErrExternal, "governance", "extract", "", cause)
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected external marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "something", nil)
	if services.Kind(err) != "transient" {
		t.Fatalf("unexpected kind: %q", services.Kind(err))
	}
}

func TestKindNil(t *testing.T) {
	if services.Kind(nil) != "" {
		t.Fatal("expected empty kind for nil error")
	}
}
