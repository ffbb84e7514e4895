package substrate

import "time"

// BlockState is the governance lifecycle of a knowledge block. States are
// ordered by strength: a proposed block is weakest, a constant block can no
// longer change.
type BlockState string

const (
	BlockProposed BlockState = "proposed"
	BlockAccepted BlockState = "accepted"
	BlockLocked   BlockState = "locked"
	BlockConstant BlockState = "constant"
	BlockArchived BlockState = "archived"
)

// AcceptedOrStronger reports whether a block state counts toward duplicate
// detection. Proposed and archived blocks are ignored.
func (s BlockState) AcceptedOrStronger() bool {
	switch s {
	case BlockAccepted, BlockLocked, BlockConstant:
		return true
	default:
		return false
	}
}

// ItemState is the lifecycle of a context item.
type ItemState string

const (
	ItemActive ItemState = "active"
	ItemMerged ItemState = "merged"
)

// Dump is raw captured content awaiting governance.
type Dump struct {
	ID        string
	BasketID  string
	Body      string
	SourceRef string
	CreatedAt time.Time
}

// Block is one governed knowledge unit.
type Block struct {
	ID           string
	BasketID     string
	WorkspaceID  string
	Title        string
	Content      string
	SemanticType string
	State        BlockState
	Confidence   float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ContextItem is a lightweight semantic anchor (topic, entity, theme).
type ContextItem struct {
	ID              string
	BasketID        string
	Label           string
	NormalizedLabel string
	Kind            string
	State           ItemState
	MergedInto      string
	CreatedAt       time.Time
}

// Relationship connects two substrate units.
type Relationship struct {
	ID        string
	BasketID  string
	FromID    string
	ToID      string
	RelType   string
	Strength  float64
	CreatedAt time.Time
}

// Document is a narrative artifact composed over the substrate; validation
// counts documents to express proposal blast radius.
type Document struct {
	ID        string
	BasketID  string
	Title     string
	CreatedAt time.Time
}

// TimelineEvent is one append-only audit record consumed by the
// observability sink.
type TimelineEvent struct {
	ID          int64
	BasketID    string
	EventType   string
	PayloadJSON string
	CreatedAt   time.Time
}

// BlockRef is the snapshot projection of a block used for duplicate checks.
type BlockRef struct {
	ID    string
	Title string
	State BlockState
}

// ContextItemRef is the snapshot projection of an active context item.
type ContextItemRef struct {
	ID              string
	Label           string
	NormalizedLabel string
}

// Snapshot is an advisory, point-in-time view of a basket's substrate. It is
// not linearizable with concurrent proposal execution; duplicate detection
// built on it is best-effort.
type Snapshot struct {
	BasketID      string
	Blocks        []BlockRef
	ContextItems  []ContextItemRef
	DocumentCount int
}

// HasContextItem reports whether the snapshot contains an active context item
// with the given identifier.
func (s *Snapshot) HasContextItem(id string) bool {
	for _, item := range s.ContextItems {
		if item.ID == id {
			return true
		}
	}
	return false
}
