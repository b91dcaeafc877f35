package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rmaffei/cobranca-service/internal/models"
)

// Response deadlines in calendar days
const (
	noticeDeadlineDays     = 5
	lastChanceDeadlineDays = 3
)

// noticeTemplateKeys maps each notice type to its fixed template
var noticeTemplateKeys = map[models.NoticeType]string{
	models.NoticeExtrajudicial: "notice_extrajudicial",
	models.NoticeFormal:        "notice_formal",
	models.NoticeUltimaChance:  "notice_ultima_chance",
	models.NoticePreJudicial:   "notice_pre_judicial",
	models.NoticeJudicial:      "notice_judicial",
}

// noticeRuleIDs reserves a ledger rule id per notice type so notice dispatch
// shares the exactly-once guarantee of the reminder rules without colliding
// with them.
var noticeRuleIDs = map[models.NoticeType]int64{
	models.NoticeExtrajudicial: 9001,
	models.NoticeFormal:        9002,
	models.NoticeUltimaChance:  9003,
	models.NoticePreJudicial:   9004,
	models.NoticeJudicial:      9005,
}

// GenerateNotice renders and persists a formal notice for the debtor's worst
// open case, computes the response deadline, and makes sure the debtor has
// reached notificado. When dispatch is true the notice also goes out over the
// debtor's channel and the attempt is recorded in the ledger.
func (s *Service) GenerateNotice(ctx context.Context, debtorID int64, noticeType models.NoticeType, actor string, dispatch bool) (*models.Notice, error) {
	if !noticeType.Valid() {
		return nil, &ValidationError{Field: "notice_type", Reason: "unknown notice type " + string(noticeType)}
	}
	debtor, err := s.store.FindDebtorByID(ctx, debtorID)
	if err != nil {
		return nil, err
	}

	cases, err := s.store.FindOpenCasesByDebtor(ctx, debtorID)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, &ValidationError{Field: "debtor_id", Reason: "debtor has no open cases"}
	}
	now := s.now()
	worst := cases[0]
	for _, c := range cases[1:] {
		if c.DaysLate(now) > worst.DaysLate(now) {
			worst = c
		}
	}

	tmpl, err := s.store.FindTemplate(ctx, noticeTemplateKeys[noticeType])
	if err != nil {
		return nil, err
	}
	content := RenderTemplate(tmpl.Body, s.templateVars(debtor, worst))

	deadlineDays := noticeDeadlineDays
	if noticeType == models.NoticeUltimaChance {
		deadlineDays = lastChanceDeadlineDays
	}

	notice := &models.Notice{
		CaseID:           worst.ID,
		DebtorID:         debtorID,
		Type:             noticeType,
		Content:          content,
		ResponseDeadline: now.AddDate(0, 0, deadlineDays),
		Actor:            actor,
	}
	if err := s.store.CreateNotice(ctx, notice); err != nil {
		return nil, fmt.Errorf("failed to persist notice: %w", err)
	}
	s.log.Infof("Notice %d (%s) generated for debtor %d by %s, deadline %s",
		notice.ID, noticeType, debtorID, actor, FormatDate(notice.ResponseDeadline))

	if debtor.LegalStatus.Rank() < models.StatusNotificado.Rank() {
		if err := s.advanceTo(ctx, debtorID, models.StatusNotificado, []string{string(noticeType)}, actor, ""); err != nil {
			return nil, err
		}
	}

	if dispatch {
		s.dispatchNotice(ctx, debtor, notice)
	}
	return notice, nil
}

// dispatchNotice sends a generated notice over the debtor's channel. Delivery
// failure is recorded but never fails notice generation.
func (s *Service) dispatchNotice(ctx context.Context, debtor *models.Debtor, notice *models.Notice) {
	channel, destination := pickDestination(debtor)
	rec := &models.DispatchRecord{
		CaseID:      notice.CaseID,
		RuleID:      noticeRuleIDs[notice.Type],
		Channel:     channel,
		Destination: destination,
		Content:     notice.Content,
		Outcome:     models.OutcomeSuccess,
	}
	if destination == "" {
		rec.Outcome = models.OutcomeFailure
		rec.ErrorDetail = "debtor has no contact address"
	} else if err := s.send(ctx, channel, destination, notice.Content); err != nil {
		s.log.Errorf("Notice %d: send over %s failed: %v", notice.ID, channel, err)
		rec.Outcome = models.OutcomeFailure
		rec.ErrorDetail = err.Error()
	}
	if err := s.store.RecordDispatch(ctx, rec); err != nil && !errors.Is(err, ErrDuplicateDispatch) {
		s.log.Errorf("Notice %d: failed to record dispatch: %v", notice.ID, err)
	}
}

// MarkResponded registers the debtor's response to a notice and moves the
// debtor into analysis.
func (s *Service) MarkResponded(ctx context.Context, noticeID int64, note, actor string) error {
	notice, err := s.store.FindNoticeByID(ctx, noticeID)
	if err != nil {
		return err
	}
	if notice.Responded {
		return &ValidationError{Field: "responded", Reason: "notice already marked responded"}
	}
	if err := s.store.MarkNoticeResponded(ctx, noticeID, s.now(), note); err != nil {
		return fmt.Errorf("failed to mark notice %d responded: %w", noticeID, err)
	}
	s.log.Infof("Notice %d marked responded by %s", noticeID, actor)

	return s.advanceTo(ctx, notice.DebtorID, models.StatusEmAnalise, []string{"resposta_notificacao"}, actor, note)
}

// EscalateToLegalAction moves a debtor under analysis into legal action.
// Valid only from em_analise; the hop through pre_processo is logged.
func (s *Service) EscalateToLegalAction(ctx context.Context, debtorID int64, note, actor string) error {
	debtor, err := s.store.FindDebtorByID(ctx, debtorID)
	if err != nil {
		return err
	}
	if debtor.LegalStatus != models.StatusEmAnalise {
		return &InvalidTransitionError{DebtorID: debtorID, From: debtor.LegalStatus, To: models.StatusAcionado}
	}
	if err := s.advanceTo(ctx, debtorID, models.StatusAcionado, []string{"acao_judicial"}, actor, note); err != nil {
		return err
	}
	s.log.Warnf("Debtor %d escalated to legal action by %s", debtorID, actor)
	return nil
}
