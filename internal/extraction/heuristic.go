package extraction

import (
	"context"
	"strings"

	"loom/internal/config"
)

// HeuristicExtractor finds candidates with local text heuristics: paragraphs
// become block candidates, short "Key: value" lines become context items. It
// never fails, so capture keeps working when no extraction service is
// configured.
type HeuristicExtractor struct{}

// NewExtractor picks the configured extractor: HTTP when an endpoint is set,
// the local heuristic otherwise.
func NewExtractor(cfg config.Extraction) Extractor {
	if strings.TrimSpace(cfg.Endpoint) != "" {
		return NewHTTPExtractor(cfg)
	}
	return HeuristicExtractor{}
}

const (
	minParagraphLength = 30
	maxLabelLength     = 50
)

// Extract splits content into paragraphs and derives a block candidate from
// each substantive one. Confidence tracks how much content backs the
// candidate.
func (HeuristicExtractor) Extract(_ context.Context, content string) ([]Candidate, error) {
	var candidates []Candidate
	for _, paragraph := range splitParagraphs(content) {
		if label, ok := contextItemLabel(paragraph); ok {
			candidates = append(candidates, Candidate{
				Kind:       KindContextItem,
				Title:      label,
				Confidence: 0.6,
			})
			continue
		}
		if len(paragraph) < minParagraphLength {
			continue
		}
		confidence := 0.5
		if len(paragraph) > 200 {
			confidence = 0.7
		}
		candidates = append(candidates, Candidate{
			Kind:         KindBlock,
			Title:        paragraphTitle(paragraph),
			Content:      paragraph,
			SemanticType: "insight",
			Confidence:   confidence,
		})
	}
	return candidates, nil
}

func splitParagraphs(content string) []string {
	var paragraphs []string
	for _, chunk := range strings.Split(content, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			paragraphs = append(paragraphs, chunk)
		}
	}
	return paragraphs
}

// contextItemLabel recognizes single-line "Topic: pricing" style annotations.
func contextItemLabel(paragraph string) (string, bool) {
	if strings.Contains(paragraph, "\n") {
		return "", false
	}
	key, value, found := strings.Cut(paragraph, ":")
	if !found {
		return "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" || len(value) > maxLabelLength || len(strings.Fields(value)) > 4 {
		return "", false
	}
	return value, true
}

// paragraphTitle uses the first sentence, clipped to a reasonable length.
func paragraphTitle(paragraph string) string {
	line := paragraph
	if idx := strings.IndexAny(line, "\n"); idx >= 0 {
		line = line[:idx]
	}
	if idx := strings.IndexAny(line, ".!?"); idx > 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if len(line) > 80 {
		line = strings.TrimSpace(line[:80])
	}
	return line
}
