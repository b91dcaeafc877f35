package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rmaffei/cobranca-service/internal/models"
	"github.com/rmaffei/cobranca-service/internal/service"
)

// CreateNotice persists a generated notice
func (r *Repository) CreateNotice(ctx context.Context, n *models.Notice) error {
	query := `
		INSERT INTO cobranca.notices (case_id, debtor_id, notice_type, content, response_deadline, responded, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, n.CaseID, n.DebtorID, n.Type, n.Content,
		n.ResponseDeadline, n.Actor).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notice: %w", err)
	}
	return nil
}

// FindNoticeByID retrieves a notice by id
func (r *Repository) FindNoticeByID(ctx context.Context, id int64) (*models.Notice, error) {
	n := &models.Notice{}
	query := `
		SELECT id, case_id, debtor_id, notice_type, content, response_deadline,
		       responded, responded_at, response_note, actor, created_at
		FROM cobranca.notices
		WHERE id = $1`
	var note sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&n.ID, &n.CaseID, &n.DebtorID, &n.Type, &n.Content, &n.ResponseDeadline,
			&n.Responded, &n.RespondedAt, &note, &n.Actor, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &service.NotFoundError{Entity: "notice", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notice: %w", err)
	}
	n.ResponseNote = note.String
	return n, nil
}

// MarkNoticeResponded flips the responded flag with its timestamp and note
func (r *Repository) MarkNoticeResponded(ctx context.Context, id int64, at time.Time, note string) error {
	query := `
		UPDATE cobranca.notices
		SET responded = TRUE, responded_at = $1, response_note = $2
		WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, at, note, id)
	if err != nil {
		return fmt.Errorf("failed to mark notice responded: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return &service.NotFoundError{Entity: "notice", ID: id}
	}
	return nil
}

// FindAgreementByID retrieves an agreement by id
func (r *Repository) FindAgreementByID(ctx context.Context, id int64) (*models.Agreement, error) {
	a := &models.Agreement{}
	query := `
		SELECT id, case_id, original_amount, agreed_amount, installments, breach_penalty_pct, status, created_at, updated_at
		FROM cobranca.agreements
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.CaseID, &a.OriginalAmount, &a.AgreedAmount, &a.Installments,
			&a.BreachPenaltyPct, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &service.NotFoundError{Entity: "agreement", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find agreement: %w", err)
	}
	return a, nil
}

// UpdateAgreementStatus writes a new agreement status
func (r *Repository) UpdateAgreementStatus(ctx context.Context, id int64, status string) error {
	query := `
		UPDATE cobranca.agreements
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update agreement status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return &service.NotFoundError{Entity: "agreement", ID: id}
	}
	return nil
}

// ListActiveReminderRules retrieves every active reminder rule ordered by offset
func (r *Repository) ListActiveReminderRules(ctx context.Context) ([]*models.ReminderRule, error) {
	query := `
		SELECT id, day_offset, template_key, active, created_at
		FROM cobranca.reminder_rules
		WHERE active = TRUE
		ORDER BY day_offset`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.ReminderRule
	for rows.Next() {
		rule := &models.ReminderRule{}
		if err := rows.Scan(&rule.ID, &rule.DayOffset, &rule.TemplateKey, &rule.Active, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminder rules: %w", err)
	}
	return rules, nil
}

// FindTemplate retrieves a message template by key
func (r *Repository) FindTemplate(ctx context.Context, key string) (*models.MessageTemplate, error) {
	t := &models.MessageTemplate{}
	query := `
		SELECT key, body, updated_at
		FROM cobranca.message_templates
		WHERE key = $1`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&t.Key, &t.Body, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &service.NotFoundError{Entity: "template", Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find template: %w", err)
	}
	return t, nil
}
