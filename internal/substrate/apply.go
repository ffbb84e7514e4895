package substrate

import (
	"context"
	"fmt"

	"loom/internal/ops"
)

// Apply executes one approved operation against the substrate and returns the
// identifier of anything created. Blocks and context items created through
// governance enter the accepted state directly: approval is the acceptance.
// Each operation must be independently safe to retry or skip; Apply never
// rolls back earlier operations in the same proposal.
func (s *Store) Apply(ctx context.Context, basketID, workspaceID string, op ops.Operation) (string, error) {
	switch op.Type {
	case ops.TypeCreateBlock:
		payload := op.CreateBlock
		if payload == nil {
			return "", fmt.Errorf("apply %s: missing payload", op.Type)
		}
		return s.CreateBlock(ctx, Block{
			BasketID:     basketID,
			WorkspaceID:  workspaceID,
			Title:        payload.Title,
			Content:      payload.Content,
			SemanticType: payload.SemanticType,
			Confidence:   payload.Confidence,
			State:        BlockAccepted,
		})
	case ops.TypeCreateContextItem:
		payload := op.CreateContextItem
		if payload == nil {
			return "", fmt.Errorf("apply %s: missing payload", op.Type)
		}
		return s.CreateContextItem(ctx, ContextItem{
			BasketID: basketID,
			Label:    payload.Label,
			Kind:     payload.Kind,
		})
	case ops.TypeMergeContextItems:
		payload := op.MergeContextItems
		if payload == nil {
			return "", fmt.Errorf("apply %s: missing payload", op.Type)
		}
		if err := s.MergeContextItems(ctx, basketID, payload.FromIDs, payload.CanonicalID); err != nil {
			return "", err
		}
		return payload.CanonicalID, nil
	default:
		return "", fmt.Errorf("apply: unknown operation type %q", op.Type)
	}
}
