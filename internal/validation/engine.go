package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"loom/internal/logging"
	"loom/internal/ops"
	"loom/internal/substrate"
)

// Confidence sentinels. 0.5 means "no operations scored"; 0.3 means
// "validation itself failed". These are operator-facing defaults, not
// load-bearing governance thresholds.
const (
	confidenceNoOps  = 0.5
	confidenceFailed = 0.3

	duplicateThreshold = 0.9
	mergeThreshold     = 0.7
)

// Domain keywords that raise CreateBlock confidence: content carrying them
// tends to be deliberate knowledge rather than noise.
var domainKeywords = []string{"goal", "strategy", "plan"}

// Request is one operation batch to score.
type Request struct {
	BasketID    string
	WorkspaceID string
	Ops         []ops.Operation
	Origin      string
	Provenance  []string
}

// SnapshotSource supplies the advisory substrate view duplicate detection
// reads.
type SnapshotSource interface {
	Snapshot(ctx context.Context, basketID string) (*substrate.Snapshot, error)
}

// Engine scores and conflict-checks proposed operation batches.
type Engine struct {
	snapshots SnapshotSource
	logger    *slog.Logger
}

// NewEngine constructs a validation engine.
func NewEngine(snapshots SnapshotSource, logger *slog.Logger) *Engine {
	return &Engine{
		snapshots: snapshots,
		logger:    logging.NewComponentLogger(logger, "validation-engine"),
	}
}

// Validate scores an operation batch against the current substrate snapshot.
// It never returns an error: any internal failure degrades to the safe-default
// report so governance can proceed with a conservative confidence.
func (e *Engine) Validate(ctx context.Context, req Request) Report {
	snapshot, err := e.snapshots.Snapshot(ctx, req.BasketID)
	if err != nil {
		e.logger.Warn("snapshot unavailable, returning safe-default report",
			logging.String(logging.FieldBasketID, req.BasketID),
			logging.Error(err),
		)
		return failedReport(err)
	}

	report := Report{}
	var confidences []float64
	for _, op := range req.Ops {
		confidences = append(confidences, e.validateOp(snapshot, op, &report))
	}

	if len(confidences) == 0 {
		report.Confidence = confidenceNoOps
	} else {
		var sum float64
		for _, c := range confidences {
			sum += c
		}
		report.Confidence = sum / float64(len(confidences))
	}

	report.ImpactSummary = impactSummary(req.Ops, snapshot.DocumentCount)
	return report
}

func (e *Engine) validateOp(snapshot *substrate.Snapshot, op ops.Operation, report *Report) float64 {
	switch op.Type {
	case ops.TypeCreateBlock:
		return e.validateCreateBlock(snapshot, op.CreateBlock, report)
	case ops.TypeCreateContextItem:
		return e.validateCreateContextItem(snapshot, op.CreateContextItem, report)
	case ops.TypeMergeContextItems:
		return e.validateMerge(snapshot, op.MergeContextItems, report)
	default:
		report.Warnings = append(report.Warnings, fmt.Sprintf("unknown operation type %q", op.Type))
		return confidenceNoOps
	}
}

func (e *Engine) validateCreateBlock(snapshot *substrate.Snapshot, payload *ops.CreateBlock, report *Report) float64 {
	if payload == nil {
		report.Warnings = append(report.Warnings, "CreateBlock operation missing payload")
		return confidenceFailed
	}

	for _, existing := range snapshot.Blocks {
		score := Similarity(payload.Title, existing.Title)
		switch {
		case score > duplicateThreshold:
			report.Conflicts = append(report.Conflicts, Conflict{
				ExistingID:      existing.ID,
				ExistingTitle:   existing.Title,
				SimilarityScore: score,
				ConflictType:    ConflictDuplicate,
			})
		case score >= mergeThreshold:
			report.SuggestedMerges = append(report.SuggestedMerges, Conflict{
				ExistingID:      existing.ID,
				ExistingTitle:   existing.Title,
				SimilarityScore: score,
				ConflictType:    ConflictMergeCandidate,
			})
		}
	}

	confidence := 0.5
	if len(payload.Content) > 50 {
		confidence = 0.7
	}
	lowered := strings.ToLower(payload.Content)
	for _, keyword := range domainKeywords {
		if strings.Contains(lowered, keyword) {
			confidence += 0.1
			break
		}
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}

func (e *Engine) validateCreateContextItem(snapshot *substrate.Snapshot, payload *ops.CreateContextItem, report *Report) float64 {
	if payload == nil {
		report.Warnings = append(report.Warnings, "CreateContextItem operation missing payload")
		return confidenceFailed
	}

	normalized := substrate.NormalizeLabel(payload.Label)
	for _, existing := range snapshot.ContextItems {
		score := Similarity(normalized, existing.NormalizedLabel)
		switch {
		case score > duplicateThreshold:
			report.Conflicts = append(report.Conflicts, Conflict{
				ExistingID:      existing.ID,
				ExistingTitle:   existing.Label,
				SimilarityScore: score,
				ConflictType:    ConflictDuplicate,
			})
		case score >= mergeThreshold:
			report.SuggestedMerges = append(report.SuggestedMerges, Conflict{
				ExistingID:      existing.ID,
				ExistingTitle:   existing.Label,
				SimilarityScore: score,
				ConflictType:    ConflictMergeCandidate,
			})
		}
	}

	confidence := 0.6
	if length := len(payload.Label); length > 3 && length < 50 {
		confidence += 0.2
	}
	if confidence > 0.9 {
		confidence = 0.9
	}
	return confidence
}

func (e *Engine) validateMerge(snapshot *substrate.Snapshot, payload *ops.MergeContextItems, report *Report) float64 {
	if payload == nil {
		report.Warnings = append(report.Warnings, "MergeContextItems operation missing payload")
		return confidenceFailed
	}

	var missing []string
	for _, id := range payload.FromIDs {
		if !snapshot.HasContextItem(id) {
			missing = append(missing, id)
		}
	}
	// An empty canonical id can never exist, so it counts as missing too.
	if !snapshot.HasContextItem(payload.CanonicalID) {
		missing = append(missing, payload.CanonicalID)
	}

	if len(missing) > 0 {
		quoted := make([]string, len(missing))
		for i, id := range missing {
			quoted[i] = fmt.Sprintf("%q", id)
		}
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("merge references missing context items: %s", strings.Join(quoted, ", ")))
		return 0.4
	}
	return 0.8
}

func failedReport(err error) Report {
	return Report{
		Confidence:    confidenceFailed,
		Warnings:      []string{fmt.Sprintf("Validation failed: %v", err)},
		ImpactSummary: "Unable to assess impact due to validation error",
	}
}

func impactSummary(operations []ops.Operation, documentCount int) string {
	if len(operations) == 0 {
		return fmt.Sprintf("no operations; affects %d documents", documentCount)
	}

	counts := make(map[string]int)
	for _, op := range operations {
		counts[op.Name()]++
	}

	// Known types first in a stable order, then anything else alphabetically.
	order := []string{string(ops.TypeCreateBlock), string(ops.TypeCreateContextItem), string(ops.TypeMergeContextItems)}
	seen := make(map[string]struct{}, len(order))
	parts := make([]string, 0, len(counts))
	for _, name := range order {
		if count, ok := counts[name]; ok {
			parts = append(parts, fmt.Sprintf("%d %s", count, name))
			seen[name] = struct{}{}
		}
	}
	var rest []string
	for name := range counts {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		parts = append(parts, fmt.Sprintf("%d %s", counts[name], name))
	}

	return fmt.Sprintf("%s; affects %d documents", strings.Join(parts, ", "), documentCount)
}
