package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rmaffei/cobranca-service/internal/models"
	"github.com/rmaffei/cobranca-service/internal/service"
)

// CreateCase inserts a new collection case
func (r *Repository) CreateCase(ctx context.Context, c *models.Case) error {
	query := `
		INSERT INTO cobranca.cases (debtor_id, case_type, principal, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, c.DebtorID, c.CaseType, c.Principal, c.DueDate, c.Status).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

// FindCaseByID retrieves a case by id
func (r *Repository) FindCaseByID(ctx context.Context, id int64) (*models.Case, error) {
	c := &models.Case{}
	query := `
		SELECT id, debtor_id, case_type, principal, due_date, status, created_at, updated_at
		FROM cobranca.cases
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.DebtorID, &c.CaseType, &c.Principal, &c.DueDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &service.NotFoundError{Entity: "case", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find case: %w", err)
	}
	return c, nil
}

// FindCasesDueOn retrieves cases with the given due date in any of the given
// statuses. The reminder scheduler uses exact-day matching here.
func (r *Repository) FindCasesDueOn(ctx context.Context, due time.Time, statuses []string) ([]*models.Case, error) {
	query := `
		SELECT id, debtor_id, case_type, principal, due_date, status, created_at, updated_at
		FROM cobranca.cases
		WHERE due_date = $1 AND status = ANY($2)`
	rows, err := r.db.QueryContext(ctx, query, due, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("failed to find cases due on %s: %w", due.Format("2006-01-02"), err)
	}
	defer rows.Close()
	return scanCases(rows)
}

// FindOpenCasesByDebtor retrieves every unsettled case of a debtor
func (r *Repository) FindOpenCasesByDebtor(ctx context.Context, debtorID int64) ([]*models.Case, error) {
	query := `
		SELECT id, debtor_id, case_type, principal, due_date, status, created_at, updated_at
		FROM cobranca.cases
		WHERE debtor_id = $1 AND status <> $2`
	rows, err := r.db.QueryContext(ctx, query, debtorID, models.CaseStatusSettled)
	if err != nil {
		return nil, fmt.Errorf("failed to find open cases for debtor %d: %w", debtorID, err)
	}
	defer rows.Close()
	return scanCases(rows)
}

// FindOpenCasesDueBefore retrieves unsettled cases due strictly before the
// given date, used by the stale-case pass.
func (r *Repository) FindOpenCasesDueBefore(ctx context.Context, before time.Time) ([]*models.Case, error) {
	query := `
		SELECT id, debtor_id, case_type, principal, due_date, status, created_at, updated_at
		FROM cobranca.cases
		WHERE due_date < $1 AND status <> $2`
	rows, err := r.db.QueryContext(ctx, query, before, models.CaseStatusSettled)
	if err != nil {
		return nil, fmt.Errorf("failed to find cases due before %s: %w", before.Format("2006-01-02"), err)
	}
	defer rows.Close()
	return scanCases(rows)
}

// MarkOverdueCases rolls every upcoming case whose due date has passed over
// to overdue, returning how many rows changed. The scheduler runs this ahead
// of rule matching so post-due rules see cases imported before they fell due.
func (r *Repository) MarkOverdueCases(ctx context.Context, dueBefore time.Time) (int64, error) {
	query := `
		UPDATE cobranca.cases
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE status = $2 AND due_date < $3`
	res, err := r.db.ExecContext(ctx, query, models.CaseStatusOverdue, models.CaseStatusUpcoming, dueBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue cases: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read update result: %w", err)
	}
	return rows, nil
}

// SettleCase marks a case settled
func (r *Repository) SettleCase(ctx context.Context, id int64) error {
	query := `
		UPDATE cobranca.cases
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, models.CaseStatusSettled, id)
	if err != nil {
		return fmt.Errorf("failed to settle case: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return &service.NotFoundError{Entity: "case", ID: id}
	}
	return nil
}

func scanCases(rows *sql.Rows) ([]*models.Case, error) {
	var cases []*models.Case
	for rows.Next() {
		c := &models.Case{}
		if err := rows.Scan(&c.ID, &c.DebtorID, &c.CaseType, &c.Principal, &c.DueDate,
			&c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cases: %w", err)
	}
	return cases, nil
}
