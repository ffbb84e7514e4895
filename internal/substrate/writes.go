package substrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateDump persists raw captured content and returns its identifier.
func (s *Store) CreateDump(ctx context.Context, basketID, body, sourceRef string) (*Dump, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("dump body is empty")
	}
	id := uuid.NewString()
	now := timestamp()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO dumps (id, basket_id, body, source_ref, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, basketID, body, nullableString(sourceRef), now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert dump: %w", err)
	}
	return s.GetDump(ctx, id)
}

// GetDump fetches a dump by identifier. Returns nil when not found.
func (s *Store) GetDump(ctx context.Context, id string) (*Dump, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, basket_id, body, source_ref, created_at FROM dumps WHERE id = ?`,
		id,
	)
	var (
		dump      Dump
		sourceRef sql.NullString
		createdAt string
	)
	err := row.Scan(&dump.ID, &dump.BasketID, &dump.Body, &sourceRef, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dump: %w", err)
	}
	dump.SourceRef = sourceRef.String
	if created, err := parseTimeString(createdAt); err == nil {
		dump.CreatedAt = created
	}
	return &dump, nil
}

// CreateBlock inserts a block in the given state and returns its identifier.
func (s *Store) CreateBlock(ctx context.Context, block Block) (string, error) {
	if strings.TrimSpace(block.Title) == "" {
		return "", errors.New("block title is empty")
	}
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	if block.State == "" {
		block.State = BlockProposed
	}
	now := timestamp()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO blocks (id, basket_id, workspace_id, title, content, semantic_type, state, confidence, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		block.ID, block.BasketID, block.WorkspaceID, block.Title,
		nullableString(block.Content), nullableString(block.SemanticType),
		block.State, block.Confidence, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert block: %w", err)
	}
	return block.ID, nil
}

// CreateContextItem inserts an active context item and returns its identifier.
func (s *Store) CreateContextItem(ctx context.Context, item ContextItem) (string, error) {
	if strings.TrimSpace(item.Label) == "" {
		return "", errors.New("context item label is empty")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.NormalizedLabel == "" {
		item.NormalizedLabel = NormalizeLabel(item.Label)
	}
	if item.State == "" {
		item.State = ItemActive
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO context_items (id, basket_id, label, normalized_label, kind, state, merged_into, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.BasketID, item.Label, item.NormalizedLabel,
		nullableString(item.Kind), item.State, nullableString(item.MergedInto), timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("insert context item: %w", err)
	}
	return item.ID, nil
}

// MergeContextItems folds the given items into a canonical one. Each from_id
// is marked merged independently; a missing id fails that id only, so the
// operation is safe to retry.
func (s *Store) MergeContextItems(ctx context.Context, basketID string, fromIDs []string, canonicalID string) error {
	var canonicalExists int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM context_items WHERE id = ? AND basket_id = ?`,
		canonicalID, basketID,
	).Scan(&canonicalExists)
	if err != nil {
		return fmt.Errorf("check canonical item: %w", err)
	}
	if canonicalExists == 0 {
		return fmt.Errorf("canonical context item %s not found in basket %s", canonicalID, basketID)
	}

	for _, fromID := range fromIDs {
		if fromID == canonicalID {
			continue
		}
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE context_items SET state = ?, merged_into = ? WHERE id = ? AND basket_id = ?`,
			ItemMerged, canonicalID, fromID, basketID,
		)
		if err != nil {
			return fmt.Errorf("merge context item %s: %w", fromID, err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("context item %s not found in basket %s", fromID, basketID)
		}
	}
	return nil
}

// CreateRelationship inserts a relationship between two substrate units.
func (s *Store) CreateRelationship(ctx context.Context, rel Relationship) (string, error) {
	if rel.FromID == "" || rel.ToID == "" {
		return "", errors.New("relationship endpoints are required")
	}
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	if rel.RelType == "" {
		rel.RelType = "related"
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO relationships (id, basket_id, from_id, to_id, rel_type, strength, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rel.ID, rel.BasketID, rel.FromID, rel.ToID, rel.RelType, rel.Strength, timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("insert relationship: %w", err)
	}
	return rel.ID, nil
}

// RelationshipExists reports whether a relationship already connects the two
// units in either direction.
func (s *Store) RelationshipExists(ctx context.Context, basketID, a, b string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM relationships
         WHERE basket_id = ? AND ((from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?))`,
		basketID, a, b, b, a,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check relationship: %w", err)
	}
	return count > 0, nil
}

// CreateDocument inserts a document row.
func (s *Store) CreateDocument(ctx context.Context, doc Document) (string, error) {
	if strings.TrimSpace(doc.Title) == "" {
		return "", errors.New("document title is empty")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO documents (id, basket_id, title, created_at) VALUES (?, ?, ?, ?)`,
		doc.ID, doc.BasketID, doc.Title, timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return doc.ID, nil
}
