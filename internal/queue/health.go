package queue

import (
	"context"
	"fmt"
)

// Health returns read-only grouped counts by (work_type, processing_state)
// plus summary totals. It has no side effects and is safe to call while
// workers are claiming.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT work_type, processing_state, COUNT(1)
         FROM queue_entries
         GROUP BY work_type, processing_state
         ORDER BY work_type, processing_state`,
	)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	summary := HealthSummary{}
	for rows.Next() {
		var row HealthRow
		if err := rows.Scan(&row.WorkType, &row.State, &row.Count); err != nil {
			return HealthSummary{}, err
		}
		summary.ByGroup = append(summary.ByGroup, row)
		summary.Total += row.Count
		switch row.State {
		case StatePending:
			summary.Pending += row.Count
		case StateClaimed, StateProcessing, StateCascading:
			summary.InFlight += row.Count
		case StateCompleted:
			summary.Completed += row.Count
		case StateFailed:
			summary.Failed += row.Count
		}
	}
	return summary, rows.Err()
}
