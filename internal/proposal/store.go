package proposal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"loom/internal/ops"
)

var (
	// ErrNotFound indicates no proposal exists with the given identifier.
	ErrNotFound = errors.New("proposal not found")
	// ErrInvalidTransition indicates the requested status change is not
	// permitted from the proposal's current status.
	ErrInvalidTransition = errors.New("invalid proposal status transition")
	// ErrAlreadyExecuted indicates the proposal's operations have already
	// been applied; a repeat execution is a no-op.
	ErrAlreadyExecuted = errors.New("proposal already executed")
)

const proposalColumns = `id, basket_id, workspace_id, kind, origin, ops_json,
    validator_report_json, status, blast_radius, provenance_json, is_executed,
    review_reason, execution_log_json, created_at, updated_at, executed_at`

// Store persists proposals. It shares the substrate database: construct it
// over substrate.Store.DB() so proposals live beside the units they mutate.
type Store struct {
	db *sql.DB
}

// NewStore builds a proposal store over an existing database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create persists a new proposal in PROPOSED status and returns it with its
// assigned identifier and timestamps.
func (s *Store) Create(ctx context.Context, p *Proposal) (*Proposal, error) {
	if p == nil {
		return nil, errors.New("proposal is nil")
	}
	if p.BasketID == "" {
		return nil, errors.New("proposal: basket id is required")
	}
	if len(p.Ops) == 0 {
		return nil, errors.New("proposal: ops list is empty")
	}

	opsJSON, err := ops.EncodeList(p.Ops)
	if err != nil {
		return nil, err
	}
	var reportJSON string
	if p.Report != nil {
		if reportJSON, err = encodeJSON(p.Report); err != nil {
			return nil, err
		}
	}
	var provenanceJSON string
	if len(p.Provenance) > 0 {
		if provenanceJSON, err = encodeJSON(p.Provenance); err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	now := timestamp()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO proposals (
            id, basket_id, workspace_id, kind, origin, ops_json,
            validator_report_json, status, blast_radius, provenance_json,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.BasketID, p.WorkspaceID, p.Kind, p.Origin, opsJSON,
		nullableString(reportJSON), StatusProposed, nullableString(p.BlastRadius),
		nullableString(provenanceJSON), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("proposal: create: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID loads one proposal.
func (s *Store) GetByID(ctx context.Context, id string) (*Proposal, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+proposalColumns+" FROM proposals WHERE id = ?", id)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("proposal: get %s: %w", id, err)
	}
	return p, nil
}

// List returns proposals for a basket, newest first. An empty status matches
// all statuses; an empty basket matches all baskets.
func (s *Store) List(ctx context.Context, basketID string, status Status) ([]*Proposal, error) {
	query := "SELECT " + proposalColumns + " FROM proposals"
	var (
		clauses []string
		args    []any
	)
	if basketID != "" {
		clauses = append(clauses, "basket_id = ?")
		args = append(args, basketID)
	}
	if status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("proposal: list: %w", err)
	}
	defer rows.Close()

	var proposals []*Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("proposal: scan: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// Approve moves a proposal from PROPOSED to APPROVED. The transition is a
// compare-and-set: a proposal that is no longer PROPOSED (raced approval,
// prior rejection) yields ErrInvalidTransition.
func (s *Store) Approve(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusApproved,
		"UPDATE proposals SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		StatusProposed)
}

// Reject moves a proposal from PROPOSED to REJECTED, recording the reason.
func (s *Store) Reject(ctx context.Context, id, reason string) error {
	now := timestamp()
	res, err := s.db.ExecContext(ctx,
		"UPDATE proposals SET status = ?, review_reason = ?, updated_at = ? WHERE id = ? AND status = ?",
		StatusRejected, nullableString(reason), now, id, StatusProposed)
	if err != nil {
		return fmt.Errorf("proposal: reject %s: %w", id, err)
	}
	return s.checkTransition(ctx, res, id, StatusRejected)
}

func (s *Store) transition(ctx context.Context, id string, to Status, query string, from Status) error {
	res, err := s.db.ExecContext(ctx, query, to, timestamp(), id, from)
	if err != nil {
		return fmt.Errorf("proposal: transition %s to %s: %w", id, to, err)
	}
	return s.checkTransition(ctx, res, id, to)
}

func (s *Store) checkTransition(ctx context.Context, res sql.Result, id string, to Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("proposal: rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s, cannot become %s", ErrInvalidTransition, id, current.Status, to)
}

// claimExecution atomically marks an APPROVED, not-yet-executed proposal as
// executed. Exactly one caller wins; losers learn whether the proposal was
// already executed or never approved.
func (s *Store) claimExecution(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE proposals SET is_executed = 1, updated_at = ? WHERE id = ? AND status = ? AND is_executed = 0",
		timestamp(), id, StatusApproved)
	if err != nil {
		return fmt.Errorf("proposal: claim execution %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("proposal: rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.IsExecuted {
		return fmt.Errorf("%w: %s", ErrAlreadyExecuted, id)
	}
	return fmt.Errorf("%w: %s is %s, cannot execute", ErrInvalidTransition, id, current.Status)
}

// recordExecution finalizes an executed proposal with its execution log.
func (s *Store) recordExecution(ctx context.Context, id string, log []OpResult) error {
	var logJSON string
	if len(log) > 0 {
		var err error
		if logJSON, err = encodeJSON(log); err != nil {
			return err
		}
	}
	now := timestamp()
	_, err := s.db.ExecContext(ctx,
		"UPDATE proposals SET status = ?, execution_log_json = ?, executed_at = ?, updated_at = ? WHERE id = ?",
		StatusExecuted, nullableString(logJSON), now, now, id)
	if err != nil {
		return fmt.Errorf("proposal: record execution %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(scanner rowScanner) (*Proposal, error) {
	var (
		p                Proposal
		reportJSON       sql.NullString
		blastRadius      sql.NullString
		provenanceJSON   sql.NullString
		reviewReason     sql.NullString
		executionLogJSON sql.NullString
		executedAt       sql.NullString
		opsJSON          string
		createdAt        string
		updatedAt        string
	)
	err := scanner.Scan(
		&p.ID, &p.BasketID, &p.WorkspaceID, &p.Kind, &p.Origin, &opsJSON,
		&reportJSON, &p.Status, &blastRadius, &provenanceJSON, &p.IsExecuted,
		&reviewReason, &executionLogJSON, &createdAt, &updatedAt, &executedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.Ops, err = ops.DecodeList(opsJSON); err != nil {
		return nil, err
	}
	if p.Report, err = decodeReport(reportJSON.String); err != nil {
		return nil, err
	}
	if p.Provenance, err = decodeProvenance(provenanceJSON.String); err != nil {
		return nil, err
	}
	if p.ExecutionLog, err = decodeExecutionLog(executionLogJSON.String); err != nil {
		return nil, err
	}
	p.BlastRadius = blastRadius.String
	p.ReviewReason = reviewReason.String

	if p.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if executedAt.Valid && executedAt.String != "" {
		t, err := parseTimeString(executedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse executed_at: %w", err)
		}
		p.ExecutedAt = &t
	}
	return &p, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
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

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
