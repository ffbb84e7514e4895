package validation

// ConflictType classifies how a proposed unit collides with an existing one.
type ConflictType string

const (
	ConflictDuplicate      ConflictType = "duplicate"
	ConflictMergeCandidate ConflictType = "merge_candidate"
)

// Conflict records one collision between a proposed operation and an existing
// substrate unit.
type Conflict struct {
	ExistingID      string       `json:"existing_id"`
	ExistingTitle   string       `json:"existing_title,omitempty"`
	SimilarityScore float64      `json:"similarity_score"`
	ConflictType    ConflictType `json:"conflict_type"`
}

// Report is the validator's verdict on a proposal's operation batch.
// Confidence is the arithmetic mean of per-operation confidences, within
// [0,1].
type Report struct {
	Confidence      float64    `json:"confidence"`
	Conflicts       []Conflict `json:"conflicts,omitempty"`
	SuggestedMerges []Conflict `json:"suggested_merges,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
	ImpactSummary   string     `json:"impact_summary"`
}

// HasDuplicates reports whether any hard duplicate conflict was found.
func (r Report) HasDuplicates() bool {
	for _, c := range r.Conflicts {
		if c.ConflictType == ConflictDuplicate {
			return true
		}
	}
	return false
}
