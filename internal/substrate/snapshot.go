package substrate

import (
	"context"
	"database/sql"
	"fmt"
)

// Snapshot reads an advisory point-in-time view of a basket: blocks in
// accepted-or-stronger states, active context items, and the document count.
// The view is not linearizable with concurrent proposal execution.
func (s *Store) Snapshot(ctx context.Context, basketID string) (*Snapshot, error) {
	snapshot := &Snapshot{BasketID: basketID}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, title, state FROM blocks
         WHERE basket_id = ? AND state IN (?, ?, ?)
         ORDER BY created_at, id`,
		basketID, BlockAccepted, BlockLocked, BlockConstant,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot blocks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ref BlockRef
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.State); err != nil {
			return nil, err
		}
		snapshot.Blocks = append(snapshot.Blocks, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := s.db.QueryContext(
		ctx,
		`SELECT id, label, normalized_label FROM context_items
         WHERE basket_id = ? AND state = ?
         ORDER BY created_at, id`,
		basketID, ItemActive,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot context items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var ref ContextItemRef
		if err := itemRows.Scan(&ref.ID, &ref.Label, &ref.NormalizedLabel); err != nil {
			return nil, err
		}
		snapshot.ContextItems = append(snapshot.ContextItems, ref)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM documents WHERE basket_id = ?`,
		basketID,
	).Scan(&snapshot.DocumentCount); err != nil {
		return nil, fmt.Errorf("snapshot documents: %w", err)
	}

	return snapshot, nil
}

// ListBlocks returns a basket's blocks filtered by state (or all blocks when
// no state is provided), oldest first.
func (s *Store) ListBlocks(ctx context.Context, basketID string, states ...BlockState) ([]*Block, error) {
	query := `SELECT id, basket_id, workspace_id, title, content, semantic_type, state, confidence, created_at, updated_at
        FROM blocks WHERE basket_id = ?`
	args := []any{basketID}
	if len(states) > 0 {
		query += ` AND state IN (`
		for i, state := range states {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, state)
		}
		query += `)`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

// ListContextItems returns a basket's active context items, oldest first.
func (s *Store) ListContextItems(ctx context.Context, basketID string) ([]*ContextItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, basket_id, label, normalized_label, kind, state, merged_into, created_at
         FROM context_items WHERE basket_id = ? AND state = ? ORDER BY created_at, id`,
		basketID, ItemActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list context items: %w", err)
	}
	defer rows.Close()

	var items []*ContextItem
	for rows.Next() {
		var (
			item       ContextItem
			kind       sql.NullString
			mergedInto sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&item.ID, &item.BasketID, &item.Label, &item.NormalizedLabel, &kind, &item.State, &mergedInto, &createdAt); err != nil {
			return nil, err
		}
		item.Kind = kind.String
		item.MergedInto = mergedInto.String
		if created, err := parseTimeString(createdAt); err == nil {
			item.CreatedAt = created
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// ListRelationships returns a basket's relationships, oldest first.
func (s *Store) ListRelationships(ctx context.Context, basketID string) ([]*Relationship, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, basket_id, from_id, to_id, rel_type, strength, created_at
         FROM relationships WHERE basket_id = ? ORDER BY created_at, id`,
		basketID,
	)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	var rels []*Relationship
	for rows.Next() {
		var (
			rel       Relationship
			createdAt string
		)
		if err := rows.Scan(&rel.ID, &rel.BasketID, &rel.FromID, &rel.ToID, &rel.RelType, &rel.Strength, &createdAt); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdAt); err == nil {
			rel.CreatedAt = created
		}
		rels = append(rels, &rel)
	}
	return rels, rows.Err()
}

func scanBlock(scanner interface{ Scan(dest ...any) error }) (*Block, error) {
	var (
		block        Block
		content      sql.NullString
		semanticType sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := scanner.Scan(
		&block.ID, &block.BasketID, &block.WorkspaceID, &block.Title,
		&content, &semanticType, &block.State, &block.Confidence,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	block.Content = content.String
	block.SemanticType = semanticType.String
	if created, err := parseTimeString(createdAt); err == nil {
		block.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedAt); err == nil {
		block.UpdatedAt = updated
	}
	return &block, nil
}
