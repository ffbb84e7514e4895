package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Enqueue inserts a new entry with processing_state=pending and returns the
// stored row. AvailableAt, Priority, PayloadJSON, and ParentWorkID are honored
// when set on the input.
func (s *Store) Enqueue(ctx context.Context, entry *Entry) (*Entry, error) {
	if entry == nil {
		return nil, errors.New("entry is nil")
	}
	if _, ok := workTypeSet[entry.WorkType]; !ok {
		return nil, fmt.Errorf("enqueue: unknown work type %q", entry.WorkType)
	}
	if entry.BasketID == "" {
		return nil, errors.New("enqueue: basket id is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_entries (
            work_type, basket_id, workspace_id, processing_state, payload_json,
            parent_work_id, priority, available_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.WorkType,
		entry.BasketID,
		entry.WorkspaceID,
		StatePending,
		nullableString(entry.PayloadJSON),
		nullableInt64(entry.ParentWorkID),
		entry.Priority,
		nullableTime(entry.AvailableAt),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue entry by identifier. Returns nil when not found.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM queue_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// UpdateState performs an unconditional status write, optionally recording an
// error message. The claim columns are left intact for audit; stale
// reclamation only ever inspects claimed and processing rows.
func (s *Store) UpdateState(ctx context.Context, id int64, state State, errorMessage string) error {
	if _, ok := stateSet[state]; !ok {
		return fmt.Errorf("update state: unknown state %q", state)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE queue_entries SET processing_state = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		state,
		nullableString(errorMessage),
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	return nil
}

// List returns queue entries filtered by state set (or all entries when no
// state is provided), oldest first.
func (s *Store) List(ctx context.Context, states ...State) ([]*Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + entryColumns + ` FROM queue_entries`
	orderClause := ` ORDER BY created_at, id`

	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = state
		}
		query := baseQuery + ` WHERE processing_state IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListByBasket returns all entries for a basket, oldest first.
func (s *Store) ListByBasket(ctx context.Context, basketID string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM queue_entries WHERE basket_id = ? ORDER BY created_at, id`,
		basketID,
	)
	if err != nil {
		return nil, fmt.Errorf("list basket entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// RetryFailed moves failed entries back to pending for reprocessing. With no
// ids, every failed entry is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_entries
            SET processing_state = ?, claimed_by = NULL, claimed_at = NULL,
                error_message = NULL, updated_at = ?
            WHERE processing_state = ?`,
			StatePending,
			now,
			StateFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed entries: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatePending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE queue_entries
        SET processing_state = ?, claimed_by = NULL, claimed_at = NULL,
            error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND processing_state = '` + string(StateFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected entries: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes only completed entries from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_entries WHERE processing_state = ?`, StateCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed entries from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_entries WHERE processing_state = ?`, StateFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all entries from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_entries`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}
