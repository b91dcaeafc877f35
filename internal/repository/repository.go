package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rmaffei/cobranca-service/internal/models"
	"github.com/rmaffei/cobranca-service/internal/service"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindDebtorByID retrieves a debtor entity by id
func (r *Repository) FindDebtorByID(ctx context.Context, id int64) (*models.Debtor, error) {
	d := &models.Debtor{}
	query := `
		SELECT id, name, unit_code, tax_id, phone, email, risk_score,
		       agreement_breached, legal_status, last_escalation_at, created_at, updated_at
		FROM cobranca.debtors
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&d.ID, &d.Name, &d.UnitCode, &d.TaxID, &d.Phone, &d.Email, &d.RiskScore,
			&d.AgreementBreached, &d.LegalStatus, &d.LastEscalationAt, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &service.NotFoundError{Entity: "debtor", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find debtor: %w", err)
	}
	return d, nil
}

// UpdateDebtorStatusCAS writes a new legal status only if the current status
// still matches the one the caller read. Zero rows updated means another
// transition won the race.
func (r *Repository) UpdateDebtorStatusCAS(ctx context.Context, id int64, from, to models.LegalStatus, escalatedAt time.Time) error {
	query := `
		UPDATE cobranca.debtors
		SET legal_status = $1, last_escalation_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND legal_status = $4`
	res, err := r.db.ExecContext(ctx, query, to, escalatedAt, id, from)
	if err != nil {
		return fmt.Errorf("failed to update debtor status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return &service.ConcurrencyConflictError{DebtorID: id, Expected: from}
	}
	return nil
}

// ResetDebtorStatus returns a cleared debtor to regular. This is the
// debt-cleared reset, written directly and never logged as an escalation.
func (r *Repository) ResetDebtorStatus(ctx context.Context, id int64) error {
	query := `
		UPDATE cobranca.debtors
		SET legal_status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, models.StatusRegular, id)
	if err != nil {
		return fmt.Errorf("failed to reset debtor status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return &service.NotFoundError{Entity: "debtor", ID: id}
	}
	return nil
}

// SetDebtorBreached updates the debtor's agreement-breach flag
func (r *Repository) SetDebtorBreached(ctx context.Context, id int64, breached bool) error {
	query := `
		UPDATE cobranca.debtors
		SET agreement_breached = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, breached, id)
	if err != nil {
		return fmt.Errorf("failed to update debtor breach flag: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return &service.NotFoundError{Entity: "debtor", ID: id}
	}
	return nil
}
