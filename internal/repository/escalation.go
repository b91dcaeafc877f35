package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rmaffei/cobranca-service/internal/models"
)

// AppendEscalationLog writes one immutable audit entry
func (r *Repository) AppendEscalationLog(ctx context.Context, entry *models.EscalationLog) error {
	query := `
		INSERT INTO cobranca.escalation_logs (debtor_id, case_id, from_status, to_status, reason_codes, actor, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, entry.DebtorID, entry.CaseID, entry.FromStatus,
		entry.ToStatus, pq.Array(entry.ReasonCodes), entry.Actor, entry.Note).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append escalation log: %w", err)
	}
	return nil
}

// CountRecurrences counts how many times the debtor left regular within the
// trailing window, read from the append-only log.
func (r *Repository) CountRecurrences(ctx context.Context, debtorID int64, since time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM cobranca.escalation_logs
		WHERE debtor_id = $1 AND from_status = $2 AND created_at >= $3`
	err := r.db.QueryRowContext(ctx, query, debtorID, models.StatusRegular, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recurrences: %w", err)
	}
	return count, nil
}

// CountIgnoredContacts counts successful contact attempts in the window on
// the debtor's still-open cases that got no notice response afterwards.
func (r *Repository) CountIgnoredContacts(ctx context.Context, debtorID int64, since time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM cobranca.dispatch_records dr
		JOIN cobranca.cases c ON c.id = dr.case_id
		WHERE c.debtor_id = $1
		  AND c.status <> $2
		  AND dr.outcome = $3
		  AND dr.created_at >= $4
		  AND NOT EXISTS (
			SELECT 1 FROM cobranca.notices n
			WHERE n.debtor_id = c.debtor_id
			  AND n.responded = TRUE
			  AND n.responded_at > dr.created_at
		  )`
	err := r.db.QueryRowContext(ctx, query, debtorID, models.CaseStatusSettled,
		models.OutcomeSuccess, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ignored contacts: %w", err)
	}
	return count, nil
}

// CountBreachedAgreements counts breached agreements across the debtor's cases
func (r *Repository) CountBreachedAgreements(ctx context.Context, debtorID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM cobranca.agreements a
		JOIN cobranca.cases c ON c.id = a.case_id
		WHERE c.debtor_id = $1 AND a.status = $2`
	err := r.db.QueryRowContext(ctx, query, debtorID, models.AgreementBreached).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count breached agreements: %w", err)
	}
	return count, nil
}
