// Package ops defines the substrate mutation operations carried by proposals
// as a tagged union with a {type, data} JSON envelope. Dispatch is by
// exhaustive switch on Type; unknown types survive round-trips with their raw
// payload intact so governance can warn instead of dropping them.
package ops

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the operation union.
type Type string

const (
	TypeCreateBlock       Type = "CreateBlock"
	TypeCreateContextItem Type = "CreateContextItem"
	TypeMergeContextItems Type = "MergeContextItems"
)

// CreateBlock proposes a new knowledge block.
type CreateBlock struct {
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	SemanticType string  `json:"semantic_type,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// CreateContextItem proposes a new context item.
type CreateContextItem struct {
	Label      string  `json:"label"`
	Kind       string  `json:"kind,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// MergeContextItems proposes folding duplicate context items into a canonical one.
type MergeContextItems struct {
	FromIDs     []string `json:"from_ids"`
	CanonicalID string   `json:"canonical_id"`
}

// Operation is one ordered, immutable element of a proposal's ops list.
// Exactly one payload pointer is set for known types; unknown types keep
// their raw data.
type Operation struct {
	Type              Type
	CreateBlock       *CreateBlock
	CreateContextItem *CreateContextItem
	MergeContextItems *MergeContextItems
	Raw               json.RawMessage
}

type envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewCreateBlock builds a CreateBlock operation.
func NewCreateBlock(title, content, semanticType string, confidence float64) Operation {
	return Operation{
		Type: TypeCreateBlock,
		CreateBlock: &CreateBlock{
			Title:        title,
			Content:      content,
			SemanticType: semanticType,
			Confidence:   confidence,
		},
	}
}

// NewCreateContextItem builds a CreateContextItem operation.
func NewCreateContextItem(label, kind string, confidence float64) Operation {
	return Operation{
		Type: TypeCreateContextItem,
		CreateContextItem: &CreateContextItem{
			Label:      label,
			Kind:       kind,
			Confidence: confidence,
		},
	}
}

// NewMergeContextItems builds a MergeContextItems operation.
func NewMergeContextItems(fromIDs []string, canonicalID string) Operation {
	cp := make([]string, len(fromIDs))
	copy(cp, fromIDs)
	return Operation{
		Type: TypeMergeContextItems,
		MergeContextItems: &MergeContextItems{
			FromIDs:     cp,
			CanonicalID: canonicalID,
		},
	}
}

// Name returns the operation type string used by boundary policy checks.
func (o Operation) Name() string {
	return string(o.Type)
}

// Known reports whether the operation type is part of the union.
func (o Operation) Known() bool {
	switch o.Type {
	case TypeCreateBlock, TypeCreateContextItem, TypeMergeContextItems:
		return true
	default:
		return false
	}
}

// Data returns the operation payload as a generic map, used for boundary
// payload-key checks. Unknown types decode their raw payload; decode failures
// yield an empty map.
func (o Operation) Data() map[string]any {
	var raw []byte
	switch o.Type {
	case TypeCreateBlock:
		raw, _ = json.Marshal(o.CreateBlock)
	case TypeCreateContextItem:
		raw, _ = json.Marshal(o.CreateContextItem)
	case TypeMergeContextItems:
		raw, _ = json.Marshal(o.MergeContextItems)
	default:
		raw = o.Raw
	}
	if len(raw) == 0 {
		return map[string]any{}
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]any{}
	}
	return data
}

// MarshalJSON encodes the operation as a {type, data} envelope.
func (o Operation) MarshalJSON() ([]byte, error) {
	env := envelope{Type: o.Type}
	var (
		data []byte
		err  error
	)
	switch o.Type {
	case TypeCreateBlock:
		data, err = json.Marshal(o.CreateBlock)
	case TypeCreateContextItem:
		data, err = json.Marshal(o.CreateContextItem)
	case TypeMergeContextItems:
		data, err = json.Marshal(o.MergeContextItems)
	default:
		data = o.Raw
	}
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", o.Type, err)
	}
	env.Data = data
	return json.Marshal(env)
}

// UnmarshalJSON decodes a {type, data} envelope into the union.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*o = Operation{Type: env.Type}
	switch env.Type {
	case TypeCreateBlock:
		payload := &CreateBlock{}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, payload); err != nil {
				return fmt.Errorf("decode %s payload: %w", env.Type, err)
			}
		}
		o.CreateBlock = payload
	case TypeCreateContextItem:
		payload := &CreateContextItem{}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, payload); err != nil {
				return fmt.Errorf("decode %s payload: %w", env.Type, err)
			}
		}
		o.CreateContextItem = payload
	case TypeMergeContextItems:
		payload := &MergeContextItems{}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, payload); err != nil {
				return fmt.Errorf("decode %s payload: %w", env.Type, err)
			}
		}
		o.MergeContextItems = payload
	default:
		o.Raw = append(json.RawMessage(nil), env.Data...)
	}
	return nil
}

// EncodeList serializes an ordered ops list for persistence.
func EncodeList(operations []Operation) (string, error) {
	data, err := json.Marshal(operations)
	if err != nil {
		return "", fmt.Errorf("encode ops: %w", err)
	}
	return string(data), nil
}

// DecodeList restores an ordered ops list from persistence.
func DecodeList(raw string) ([]Operation, error) {
	if raw == "" {
		return nil, nil
	}
	var operations []Operation
	if err := json.Unmarshal([]byte(raw), &operations); err != nil {
		return nil, fmt.Errorf("decode ops: %w", err)
	}
	return operations, nil
}
