package queue

import (
	"context"
	"fmt"
	"time"
)

// ClaimBatch atomically selects up to limit entries that are pending, or
// claimed/processing/cascading with a claim older than staleAfter, flips them
// to claimed with claimed_by=workerID, and returns them. Cascading counts as
// in-flight: a worker that dies between its handler finishing and the
// completed write would otherwise strand the entry. The select-and-flip is a single
// UPDATE statement so two concurrent callers can never receive the same row:
// this is the system's core mutual-exclusion guarantee. Stale reclamation on
// the next poll is the only liveness mechanism for crashed workers.
func (s *Store) ClaimBatch(ctx context.Context, workerID string, limit int, staleAfter time.Duration) ([]*Entry, error) {
	if workerID == "" {
		return nil, fmt.Errorf("claim batch: worker id is required")
	}
	if limit <= 0 {
		return nil, nil
	}
	if staleAfter <= 0 {
		return nil, fmt.Errorf("claim batch: stale-after must be positive")
	}

	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)
	cutoff := now.Add(-staleAfter).Format(time.RFC3339Nano)

	rows, err := s.db.QueryContext(
		ctx,
		`UPDATE queue_entries
         SET processing_state = ?, claimed_by = ?, claimed_at = ?,
             attempts = attempts + 1, updated_at = ?
         WHERE id IN (
             SELECT id FROM queue_entries
             WHERE (
                 processing_state = ?
                 OR (processing_state IN (?, ?, ?) AND claimed_at IS NOT NULL AND claimed_at < ?)
             )
             AND (available_at IS NULL OR available_at <= ?)
             ORDER BY priority DESC, created_at, id
             LIMIT ?
         )
         RETURNING `+entryColumns,
		StateClaimed,
		workerID,
		nowStr,
		nowStr,
		StatePending,
		StateClaimed,
		StateProcessing,
		StateCascading,
		cutoff,
		nowStr,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	var claimed []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("claim batch scan: %w", err)
		}
		claimed = append(claimed, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim batch rows: %w", err)
	}
	return claimed, nil
}
