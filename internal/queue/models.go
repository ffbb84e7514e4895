package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// WorkType identifies which pipeline stage a queue entry belongs to.
type WorkType string

const (
	WorkCapture    WorkType = "capture"
	WorkGovernance WorkType = "governance"
	WorkGraph      WorkType = "graph"
	WorkReflection WorkType = "reflection"
)

var allWorkTypes = []WorkType{WorkCapture, WorkGovernance, WorkGraph, WorkReflection}

// State represents the processing lifecycle of a queue entry.
type State string

const (
	StatePending    State = "pending"
	StateClaimed    State = "claimed"
	StateProcessing State = "processing"
	StateCascading  State = "cascading"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

var allStates = []State{
	StatePending,
	StateClaimed,
	StateProcessing,
	StateCascading,
	StateCompleted,
	StateFailed,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

var workTypeSet = func() map[WorkType]struct{} {
	set := make(map[WorkType]struct{}, len(allWorkTypes))
	for _, wt := range allWorkTypes {
		set[wt] = struct{}{}
	}
	return set
}()

// Entry is a unit of pipeline work persisted in SQLite. At most one non-stale
// claim owner exists at any instant; this is enforced by ClaimBatch.
type Entry struct {
	ID           int64
	WorkType     WorkType
	BasketID     string
	WorkspaceID  string
	State        State
	ClaimedBy    string
	ClaimedAt    *time.Time
	PayloadJSON  string
	ParentWorkID *int64
	Priority     int
	AvailableAt  *time.Time
	ErrorMessage string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Payload decodes the entry payload into a generic map. A missing or empty
// payload yields an empty map.
func (e *Entry) Payload() (map[string]any, error) {
	if strings.TrimSpace(e.PayloadJSON) == "" {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(e.PayloadJSON), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// SetPayload encodes a generic map into the entry payload.
func (e *Entry) SetPayload(payload map[string]any) error {
	if payload == nil {
		e.PayloadJSON = ""
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	e.PayloadJSON = string(data)
	return nil
}

// IsTerminal reports whether the entry has reached a terminal state.
func (e *Entry) IsTerminal() bool {
	return e.State == StateCompleted || e.State == StateFailed
}

// AllStates returns the ordered list of known processing states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// AllWorkTypes returns the ordered list of known work types.
func AllWorkTypes() []WorkType {
	cp := make([]WorkType, len(allWorkTypes))
	copy(cp, allWorkTypes)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// ParseWorkType converts a string into a known WorkType.
func ParseWorkType(value string) (WorkType, bool) {
	normalized := WorkType(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := workTypeSet[normalized]
	return normalized, ok
}

// HealthRow is one grouped count in the queue health view.
type HealthRow struct {
	WorkType WorkType
	State    State
	Count    int
}

// HealthSummary aggregates queue counts across work types.
type HealthSummary struct {
	Total     int
	Pending   int
	InFlight  int
	Completed int
	Failed    int
	ByGroup   []HealthRow
}
