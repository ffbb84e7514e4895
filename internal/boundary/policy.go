// Package boundary enforces which operations each pipeline stage may attempt.
//
// The policy is a static table of forbidden and recommended operation-name
// substrings plus forbidden payload keys, checked before any write is
// attempted. The check is deliberately advisory-strength: a cheap, stage-local
// substring and key scan, not a capability system. It exists to fail fast on
// obviously misrouted work, not to provide a security boundary.
package boundary

import (
	"fmt"
	"strings"

	"loom/internal/queue"
)

// Policy describes one stage's operation constraints.
type Policy struct {
	Forbidden            []string
	Recommended          []string
	ForbiddenPayloadKeys []string
}

// Violation is the fatal error raised when a stage attempts a forbidden
// operation. It interrupts the in-flight operation; all other failure kinds
// degrade into persisted state instead.
type Violation struct {
	Stage     queue.WorkType
	Operation string
	Reason    string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("boundary violation: stage %s may not perform %q: %s", v.Stage, v.Operation, v.Reason)
}

var policies = map[queue.WorkType]Policy{
	queue.WorkCapture: {
		// Capture only ingests raw material; anything that smells like
		// interpretation belongs to governance.
		Forbidden:            []string{"interpret", "analyz", "createblock", "create_block", "contextitem", "context_item", "merge", "relationship", "reflect"},
		Recommended:          []string{"createdump", "create_dump"},
		ForbiddenPayloadKeys: []string{"interpretation", "analysis"},
	},
	queue.WorkGovernance: {
		Forbidden:   []string{"delete", "purge", "createdump", "create_dump"},
		Recommended: []string{"createblock", "createcontextitem", "mergecontextitems"},
	},
	queue.WorkGraph: {
		Forbidden:   []string{"createblock", "create_block", "createdump", "create_dump", "merge", "interpret"},
		Recommended: []string{"createrelationship", "create_relationship"},
	},
	queue.WorkReflection: {
		Forbidden:   []string{"createblock", "createcontextitem", "createrelationship", "createdump", "merge", "delete"},
		Recommended: []string{"computereflection", "compute_reflection"},
	},
}

// ValidateOperation checks an operation name and payload against the stage's
// policy and returns a *Violation the moment a forbidden substring or payload
// key is found. It must run before any write is attempted.
func ValidateOperation(stage queue.WorkType, opName string, opData map[string]any) error {
	policy, ok := policies[stage]
	if !ok {
		return &Violation{
			Stage:     stage,
			Operation: opName,
			Reason:    "no boundary policy registered for stage",
		}
	}

	normalized := strings.ToLower(strings.TrimSpace(opName))
	for _, forbidden := range policy.Forbidden {
		if strings.Contains(normalized, forbidden) {
			return &Violation{
				Stage:     stage,
				Operation: opName,
				Reason:    fmt.Sprintf("operation name contains forbidden substring %q", forbidden),
			}
		}
	}

	for _, key := range policy.ForbiddenPayloadKeys {
		if _, present := opData[key]; present {
			return &Violation{
				Stage:     stage,
				Operation: opName,
				Reason:    fmt.Sprintf("payload carries forbidden key %q", key),
			}
		}
	}

	return nil
}

// Recommended returns the operation-name substrings a stage is expected to
// use, for diagnostics and logging.
func Recommended(stage queue.WorkType) []string {
	policy, ok := policies[stage]
	if !ok {
		return nil
	}
	cp := make([]string, len(policy.Recommended))
	copy(cp, policy.Recommended)
	return cp
}
