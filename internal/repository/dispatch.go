package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/rmaffei/cobranca-service/internal/models"
	"github.com/rmaffei/cobranca-service/internal/service"
)

// pq error code for unique constraint violations
const uniqueViolation = "23505"

// HasSucceededBefore reports whether a success record already exists for the
// (case, rule) pair. This read is advisory only; the insert in RecordDispatch
// is the commitment point.
func (r *Repository) HasSucceededBefore(ctx context.Context, caseID, ruleID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM cobranca.dispatch_records
			WHERE case_id = $1 AND rule_id = $2 AND outcome = $3
		)`
	err := r.db.QueryRowContext(ctx, query, caseID, ruleID, models.OutcomeSuccess).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check dispatch ledger: %w", err)
	}
	return exists, nil
}

// RecordDispatch appends one delivery attempt to the ledger. A partial unique
// index on (case_id, rule_id) WHERE outcome = 'success' makes the insert the
// exactly-once commitment point: a second success insert for the same pair
// fails with a unique violation and is surfaced as ErrDuplicateDispatch.
func (r *Repository) RecordDispatch(ctx context.Context, rec *models.DispatchRecord) error {
	query := `
		INSERT INTO cobranca.dispatch_records (case_id, rule_id, channel, destination, content, outcome, error_detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, rec.CaseID, rec.RuleID, rec.Channel, rec.Destination,
		rec.Content, rec.Outcome, rec.ErrorDetail).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return service.ErrDuplicateDispatch
		}
		return fmt.Errorf("failed to record dispatch: %w", err)
	}
	return nil
}

// HasAlert reports whether an internal alert of the given kind exists for the case
func (r *Repository) HasAlert(ctx context.Context, caseID int64, kind string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM cobranca.internal_alerts
			WHERE case_id = $1 AND kind = $2
		)`
	err := r.db.QueryRowContext(ctx, query, caseID, kind).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check alerts: %w", err)
	}
	return exists, nil
}

// CreateAlert inserts an internal alert. The (case_id, kind) unique constraint
// keeps concurrent batch runs from duplicating alerts; a violation is silent.
func (r *Repository) CreateAlert(ctx context.Context, a *models.InternalAlert) error {
	query := `
		INSERT INTO cobranca.internal_alerts (case_id, kind, message, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, a.CaseID, a.Kind, a.Message).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return nil
		}
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}
