// Package extraction turns raw captured content into candidate substrate
// units. The default extractor is a local heuristic; an HTTP extractor can
// delegate to an external interpretation service when one is configured.
package extraction

import (
	"context"
)

// Candidate kinds.
const (
	KindBlock       = "block"
	KindContextItem = "context_item"
)

// Candidate is one potential substrate unit found in captured content. For
// context item candidates, Title carries the label.
type Candidate struct {
	Kind         string  `json:"kind"`
	Title        string  `json:"title"`
	Content      string  `json:"content,omitempty"`
	SemanticType string  `json:"semantic_type,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Extractor finds candidate substrate units in captured content.
type Extractor interface {
	Extract(ctx context.Context, content string) ([]Candidate, error)
}

// Filter drops candidates below the given confidence floor.
func Filter(candidates []Candidate, minConfidence float64) []Candidate {
	if minConfidence <= 0 {
		return candidates
	}
	kept := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Confidence >= minConfidence {
			kept = append(kept, candidate)
		}
	}
	return kept
}
