package proposal

import (
	"encoding/json"
	"fmt"
	"time"

	"loom/internal/ops"
	"loom/internal/validation"
)

// Status is a proposal's position in the governance lifecycle. Proposals move
// PROPOSED to APPROVED or REJECTED, and APPROVED to EXECUTED; every other
// transition is invalid.
type Status string

const (
	StatusProposed Status = "proposed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExecuted Status = "executed"
)

// Kinds describe what a proposal wants to do to the substrate.
const (
	KindExtraction = "extraction"
	KindMerge      = "merge"
)

// Origins record who authored a proposal.
const (
	OriginAgent = "agent"
	OriginHuman = "human"
)

// OpResult is one line of a proposal's execution log: which operation ran,
// what it produced, or why it failed. A failing operation is recorded and
// skipped; earlier operations are never rolled back.
type OpResult struct {
	Index     int    `json:"index"`
	Type      string `json:"type"`
	UnitID    string `json:"unit_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Succeeded bool   `json:"succeeded"`
}

// Proposal is a governed batch of substrate mutations awaiting review.
type Proposal struct {
	ID           string
	BasketID     string
	WorkspaceID  string
	Kind         string
	Origin       string
	Ops          []ops.Operation
	Report       *validation.Report
	Status       Status
	BlastRadius  string
	Provenance   []string
	IsExecuted   bool
	ReviewReason string
	ExecutionLog []OpResult
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExecutedAt   *time.Time
}

// Terminal reports whether the proposal can no longer change status.
func (p *Proposal) Terminal() bool {
	return p.Status == StatusRejected || p.Status == StatusExecuted
}

func encodeJSON(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("proposal: encode json: %w", err)
	}
	return string(data), nil
}

func decodeReport(raw string) (*validation.Report, error) {
	if raw == "" {
		return nil, nil
	}
	var report validation.Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("proposal: decode validator report: %w", err)
	}
	return &report, nil
}

func decodeProvenance(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var provenance []string
	if err := json.Unmarshal([]byte(raw), &provenance); err != nil {
		return nil, fmt.Errorf("proposal: decode provenance: %w", err)
	}
	return provenance, nil
}

func decodeExecutionLog(raw string) ([]OpResult, error) {
	if raw == "" {
		return nil, nil
	}
	var log []OpResult
	if err := json.Unmarshal([]byte(raw), &log); err != nil {
		return nil, fmt.Errorf("proposal: decode execution log: %w", err)
	}
	return log, nil
}
