package queue

import (
	"database/sql"
	"errors"
	"time"
)

const entryColumns = "id, work_type, basket_id, workspace_id, processing_state, claimed_by, claimed_at, payload_json, parent_work_id, priority, available_at, error_message, attempts, created_at, updated_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id           int64
		workType     string
		basketID     string
		workspaceID  sql.NullString
		stateStr     string
		claimedBy    sql.NullString
		claimedRaw   sql.NullString
		payload      sql.NullString
		parentWorkID sql.NullInt64
		priority     int
		availableRaw sql.NullString
		errorMessage sql.NullString
		attempts     int
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&workType,
		&basketID,
		&workspaceID,
		&stateStr,
		&claimedBy,
		&claimedRaw,
		&payload,
		&parentWorkID,
		&priority,
		&availableRaw,
		&errorMessage,
		&attempts,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:           id,
		WorkType:     WorkType(workType),
		BasketID:     basketID,
		WorkspaceID:  workspaceID.String,
		State:        State(stateStr),
		ClaimedBy:    claimedBy.String,
		PayloadJSON:  payload.String,
		Priority:     priority,
		ErrorMessage: errorMessage.String,
		Attempts:     attempts,
	}
	if parentWorkID.Valid {
		v := parentWorkID.Int64
		entry.ParentWorkID = &v
	}
	if claimedRaw.Valid {
		if claimed, err := parseTimeString(claimedRaw.String); err == nil {
			entry.ClaimedAt = &claimed
		}
	}
	if availableRaw.Valid {
		if available, err := parseTimeString(availableRaw.String); err == nil {
			entry.AvailableAt = &available
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
