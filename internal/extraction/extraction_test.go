package extraction

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loom/internal/config"
	"loom/internal/services"
)

func TestHeuristicExtractsBlocksAndContextItems(t *testing.T) {
	content := "Topic: pricing\n\n" +
		"The competitive landscape shifted this quarter and we should revisit our positioning before the next planning cycle.\n\n" +
		"短"

	candidates, err := HeuristicExtractor{}.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", candidates)
	}
	if candidates[0].Kind != KindContextItem || candidates[0].Title != "pricing" {
		t.Fatalf("unexpected context item candidate: %+v", candidates[0])
	}
	block := candidates[1]
	if block.Kind != KindBlock {
		t.Fatalf("unexpected block candidate: %+v", block)
	}
	if block.Title == "" || strings.Contains(block.Title, "\n") {
		t.Fatalf("bad block title: %q", block.Title)
	}
	if block.Confidence != 0.5 {
		t.Fatalf("short paragraph confidence: got %v, want 0.5", block.Confidence)
	}
}

func TestHeuristicEmptyContent(t *testing.T) {
	candidates, err := HeuristicExtractor{}.Extract(context.Background(), "  \n\n  ")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %+v", candidates)
	}
}

func TestFilterDropsLowConfidence(t *testing.T) {
	candidates := []Candidate{
		{Kind: KindBlock, Title: "keep", Confidence: 0.8},
		{Kind: KindBlock, Title: "drop", Confidence: 0.2},
	}
	kept := Filter(candidates, 0.5)
	if len(kept) != 1 || kept[0].Title != "keep" {
		t.Fatalf("unexpected filter result: %+v", kept)
	}
	if got := Filter(candidates, 0); len(got) != 2 {
		t.Fatalf("zero floor must keep everything, got %+v", got)
	}
}

func TestHTTPExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"kind":"block","title":"Market Analysis","content":"...","confidence":0.7}]}`))
	}))
	defer server.Close()

	extractor := NewHTTPExtractor(config.Extraction{Endpoint: server.URL, TimeoutSeconds: 5})
	candidates, err := extractor.Extract(context.Background(), "raw notes")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Title != "Market Analysis" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
}

func TestHTTPExtractorServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	extractor := NewHTTPExtractor(config.Extraction{Endpoint: server.URL, TimeoutSeconds: 5})
	_, err := extractor.Extract(context.Background(), "raw notes")
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("got %v, want ErrExternal", err)
	}
}

func TestNewExtractorSelection(t *testing.T) {
	if _, ok := NewExtractor(config.Extraction{}).(HeuristicExtractor); !ok {
		t.Fatal("empty endpoint should select the heuristic extractor")
	}
	if _, ok := NewExtractor(config.Extraction{Endpoint: "http://localhost:9"}).(*HTTPExtractor); !ok {
		t.Fatal("configured endpoint should select the HTTP extractor")
	}
}
