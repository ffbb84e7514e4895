package substrate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// AppendEvent writes one append-only timeline record for the observability
// sink.
func (s *Store) AppendEvent(ctx context.Context, basketID, eventType string, payload map[string]any) error {
	var payloadJSON any
	if len(payload) > 0 {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		payloadJSON = string(data)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO timeline_events (basket_id, event_type, payload_json, created_at) VALUES (?, ?, ?, ?)`,
		basketID, eventType, payloadJSON, timestamp(),
	)
	if err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}
	return nil
}

// ListEvents returns a basket's timeline events, oldest first, optionally
// filtered by event type.
func (s *Store) ListEvents(ctx context.Context, basketID, eventType string) ([]*TimelineEvent, error) {
	query := `SELECT id, basket_id, event_type, payload_json, created_at FROM timeline_events WHERE basket_id = ?`
	args := []any{basketID}
	if eventType != "" {
		query += ` AND event_type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	var events []*TimelineEvent
	for rows.Next() {
		var (
			event     TimelineEvent
			payload   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&event.ID, &event.BasketID, &event.EventType, &payload, &createdAt); err != nil {
			return nil, err
		}
		event.PayloadJSON = payload.String
		if created, err := parseTimeString(createdAt); err == nil {
			event.CreatedAt = created
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
