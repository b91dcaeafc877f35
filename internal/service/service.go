package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rmaffei/cobranca-service/internal/config"
	"github.com/rmaffei/cobranca-service/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Store provides persistence for the engine. Implemented by the postgres
// repository; faked in tests.
type Store interface {
	FindDebtorByID(ctx context.Context, id int64) (*models.Debtor, error)
	UpdateDebtorStatusCAS(ctx context.Context, id int64, from, to models.LegalStatus, escalatedAt time.Time) error
	ResetDebtorStatus(ctx context.Context, id int64) error
	SetDebtorBreached(ctx context.Context, id int64, breached bool) error

	CreateCase(ctx context.Context, c *models.Case) error
	FindCaseByID(ctx context.Context, id int64) (*models.Case, error)
	FindCasesDueOn(ctx context.Context, due time.Time, statuses []string) ([]*models.Case, error)
	FindOpenCasesByDebtor(ctx context.Context, debtorID int64) ([]*models.Case, error)
	FindOpenCasesDueBefore(ctx context.Context, before time.Time) ([]*models.Case, error)
	MarkOverdueCases(ctx context.Context, dueBefore time.Time) (int64, error)
	SettleCase(ctx context.Context, id int64) error

	ListActiveReminderRules(ctx context.Context) ([]*models.ReminderRule, error)
	FindTemplate(ctx context.Context, key string) (*models.MessageTemplate, error)

	HasSucceededBefore(ctx context.Context, caseID, ruleID int64) (bool, error)
	RecordDispatch(ctx context.Context, rec *models.DispatchRecord) error

	AppendEscalationLog(ctx context.Context, entry *models.EscalationLog) error
	CountRecurrences(ctx context.Context, debtorID int64, since time.Time) (int, error)
	CountIgnoredContacts(ctx context.Context, debtorID int64, since time.Time) (int, error)
	CountBreachedAgreements(ctx context.Context, debtorID int64) (int, error)

	CreateNotice(ctx context.Context, n *models.Notice) error
	FindNoticeByID(ctx context.Context, id int64) (*models.Notice, error)
	MarkNoticeResponded(ctx context.Context, id int64, at time.Time, note string) error

	FindAgreementByID(ctx context.Context, id int64) (*models.Agreement, error)
	UpdateAgreementStatus(ctx context.Context, id int64, status string) error

	HasAlert(ctx context.Context, caseID int64, kind string) (bool, error)
	CreateAlert(ctx context.Context, a *models.InternalAlert) error
}

// Sender delivers one rendered message to a destination address
type Sender interface {
	Send(ctx context.Context, destination, text string) error
}

// Service handles business logic
type Service struct {
	store Store
	chat  Sender
	mail  Sender
	log   *logrus.Logger
	cfg   *config.Config

	chatLimiter *rate.Limiter
	mailLimiter *rate.Limiter

	now func() time.Time
}

// NewService initializes a new service
func NewService(store Store, chat, mail Sender, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		store:       store,
		chat:        chat,
		mail:        mail,
		log:         log,
		cfg:         cfg,
		chatLimiter: rate.NewLimiter(rate.Limit(cfg.ChannelSendRate), 1),
		mailLimiter: rate.NewLimiter(rate.Limit(cfg.ChannelSendRate), 1),
		now:         time.Now,
	}
}

// ImportCaseInput carries the fields of a new collection case
type ImportCaseInput struct {
	DebtorID  int64     `json:"debtor_id"`
	CaseType  string    `json:"case_type"`
	Principal float64   `json:"principal"`
	DueDate   time.Time `json:"due_date"`
}

// ImportCase validates and persists a new case. Status starts as upcoming
// when the due date is in the future, open otherwise.
func (s *Service) ImportCase(ctx context.Context, in ImportCaseInput) (*models.Case, error) {
	if in.Principal <= 0 {
		return nil, &ValidationError{Field: "principal", Reason: "must be positive"}
	}
	if in.DueDate.IsZero() {
		return nil, &ValidationError{Field: "due_date", Reason: "is required"}
	}
	if in.CaseType == "" {
		in.CaseType = "royalty"
	}
	if _, err := s.store.FindDebtorByID(ctx, in.DebtorID); err != nil {
		return nil, err
	}

	c := &models.Case{
		DebtorID:  in.DebtorID,
		CaseType:  in.CaseType,
		Principal: in.Principal,
		DueDate:   in.DueDate,
		Status:    models.CaseStatusOpen,
	}
	if c.DaysLate(s.now()) == 0 && in.DueDate.After(s.now()) {
		c.Status = models.CaseStatusUpcoming
	}

	if err := s.store.CreateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to import case: %w", err)
	}
	s.log.Infof("Case %d imported for debtor %d (due %s)", c.ID, c.DebtorID, FormatDate(c.DueDate))
	return c, nil
}

// GetCase returns a case with its derived days-late and updated amount
func (s *Service) GetCase(ctx context.Context, id int64) (*models.Case, int, float64, error) {
	c, err := s.store.FindCaseByID(ctx, id)
	if err != nil {
		return nil, 0, 0, err
	}
	daysLate := c.DaysLate(s.now())
	amount := ComputeUpdatedAmount(c.Principal, daysLate, s.cfg.DefaultPenaltyPct, s.cfg.DefaultDailyInterestPct)
	return c, daysLate, amount, nil
}

// SettleCase marks a case settled. Once the debtor has no open amount left,
// the legal status resets to regular; the reset is a direct update and is
// not recorded as an escalation event.
func (s *Service) SettleCase(ctx context.Context, caseID int64, actor string) error {
	c, err := s.store.FindCaseByID(ctx, caseID)
	if err != nil {
		return err
	}
	if c.Status == models.CaseStatusSettled {
		return &ValidationError{Field: "status", Reason: "case already settled"}
	}
	if err := s.store.SettleCase(ctx, caseID); err != nil {
		return fmt.Errorf("failed to settle case %d: %w", caseID, err)
	}
	s.log.Infof("Case %d settled by %s", caseID, actor)

	open, err := s.store.FindOpenCasesByDebtor(ctx, c.DebtorID)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		if err := s.store.ResetDebtorStatus(ctx, c.DebtorID); err != nil {
			return fmt.Errorf("failed to reset debtor %d status: %w", c.DebtorID, err)
		}
		s.log.Infof("Debtor %d cleared all debt, status reset to %s", c.DebtorID, models.StatusRegular)
	}
	return nil
}

// AcceptAgreement moves a proposed agreement to accepted
func (s *Service) AcceptAgreement(ctx context.Context, agreementID int64, actor string) error {
	a, err := s.store.FindAgreementByID(ctx, agreementID)
	if err != nil {
		return err
	}
	if a.Status != models.AgreementProposed {
		return &ValidationError{Field: "status", Reason: "agreement is not in proposed state"}
	}
	if err := s.store.UpdateAgreementStatus(ctx, agreementID, models.AgreementAccepted); err != nil {
		return fmt.Errorf("failed to accept agreement %d: %w", agreementID, err)
	}
	s.log.Infof("Agreement %d accepted by %s", agreementID, actor)
	return nil
}

// MarkAgreementBreached flags an agreement breached and sets the debtor's
// breach flag, which feeds the escalation evaluator.
func (s *Service) MarkAgreementBreached(ctx context.Context, agreementID int64, actor string) error {
	a, err := s.store.FindAgreementByID(ctx, agreementID)
	if err != nil {
		return err
	}
	switch a.Status {
	case models.AgreementAccepted, models.AgreementFulfilling:
	default:
		return &ValidationError{Field: "status", Reason: "only accepted or fulfilling agreements can be breached"}
	}
	if err := s.store.UpdateAgreementStatus(ctx, agreementID, models.AgreementBreached); err != nil {
		return fmt.Errorf("failed to breach agreement %d: %w", agreementID, err)
	}

	c, err := s.store.FindCaseByID(ctx, a.CaseID)
	if err != nil {
		return err
	}
	if err := s.store.SetDebtorBreached(ctx, c.DebtorID, true); err != nil {
		return fmt.Errorf("failed to flag debtor %d breach: %w", c.DebtorID, err)
	}
	s.log.Warnf("Agreement %d breached (debtor %d), flagged by %s", agreementID, c.DebtorID, actor)
	return nil
}

// templateVars builds the canonical variable set for a case, pre-formatted
// with locale currency and dates.
func (s *Service) templateVars(debtor *models.Debtor, c *models.Case) map[string]string {
	now := s.now()
	daysLate := c.DaysLate(now)
	updated := ComputeUpdatedAmount(c.Principal, daysLate, s.cfg.DefaultPenaltyPct, s.cfg.DefaultDailyInterestPct)
	return map[string]string{
		"nome":             debtor.Name,
		"unidade":          debtor.UnitCode,
		"cnpj":             debtor.TaxID,
		"valor_original":   FormatCurrency(c.Principal),
		"valor_atualizado": FormatCurrency(RoundCurrency(updated)),
		"vencimento":       FormatDate(c.DueDate),
		"dias_atraso":      strconv.Itoa(daysLate),
		"tipo_cobranca":    c.CaseType,
		"data_atual":       FormatDate(now),
		"link_negociacao":  s.cfg.NegotiationURL,
	}
}

// send delivers text over the named channel, waiting on the channel's rate
// limiter first so consecutive sends respect upstream limits. Gateway
// failures come back as ChannelError.
func (s *Service) send(ctx context.Context, channel, destination, text string) error {
	var sender Sender
	var limiter *rate.Limiter
	switch channel {
	case models.ChannelChat:
		sender, limiter = s.chat, s.chatLimiter
	case models.ChannelEmail:
		sender, limiter = s.mail, s.mailLimiter
	default:
		return &ValidationError{Field: "channel", Reason: "unknown channel " + channel}
	}
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	if err := sender.Send(ctx, destination, text); err != nil {
		return &ChannelError{Channel: channel, Reason: err.Error()}
	}
	return nil
}
