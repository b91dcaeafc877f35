package service

import (
	"context"

	"github.com/rmaffei/cobranca-service/internal/models"
)

// EscalationInput aggregates everything the evaluator looks at for one debtor
type EscalationInput struct {
	TotalOpenAmount    float64
	MaxDaysLate        int
	IgnoredContacts    int
	BreachedAgreements int
	RiskScore          int
	RecurrenceCount    int

	AmountThreshold          float64
	IgnoredContactsThreshold int
}

// EscalationDecision is the evaluator's verdict for one debtor
type EscalationDecision struct {
	Escalate        bool     `json:"escalate"`
	ReasonCodes     []string `json:"reason_codes"`
	TotalOpenAmount float64  `json:"total_open_amount"`
	MaxDaysLate     int      `json:"max_days_late"`
}

// EvaluateEscalation applies the escalation criteria. Any single criterion
// matching is enough; every matched criterion contributes its reason code.
func EvaluateEscalation(in EscalationInput) EscalationDecision {
	d := EscalationDecision{
		TotalOpenAmount: in.TotalOpenAmount,
		MaxDaysLate:     in.MaxDaysLate,
	}
	if in.TotalOpenAmount > in.AmountThreshold {
		d.ReasonCodes = append(d.ReasonCodes, models.ReasonValorAlto)
	}
	if in.IgnoredContacts >= in.IgnoredContactsThreshold {
		d.ReasonCodes = append(d.ReasonCodes, models.ReasonContatosIgnorados)
	}
	if in.RiskScore == 0 {
		d.ReasonCodes = append(d.ReasonCodes, models.ReasonRiscoZero)
	}
	if in.BreachedAgreements > 0 {
		d.ReasonCodes = append(d.ReasonCodes, models.ReasonAcordoQuebrado)
	}
	if in.RecurrenceCount >= 1 {
		d.ReasonCodes = append(d.ReasonCodes, models.ReasonReincidencia)
	}
	d.Escalate = len(d.ReasonCodes) > 0
	return d
}

// EvaluateDebtor assembles the evaluator's inputs from the store, runs the
// criteria, and when escalation is due moves a regular debtor to
// pendente_grave automatically.
func (s *Service) EvaluateDebtor(ctx context.Context, debtorID int64) (*EscalationDecision, error) {
	debtor, err := s.store.FindDebtorByID(ctx, debtorID)
	if err != nil {
		return nil, err
	}

	cases, err := s.store.FindOpenCasesByDebtor(ctx, debtorID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var total float64
	maxLate := 0
	for _, c := range cases {
		late := c.DaysLate(now)
		total += ComputeUpdatedAmount(c.Principal, late, s.cfg.DefaultPenaltyPct, s.cfg.DefaultDailyInterestPct)
		if late > maxLate {
			maxLate = late
		}
	}

	window := now.AddDate(0, 0, -s.cfg.IgnoredContactsWindowDays)
	ignored, err := s.store.CountIgnoredContacts(ctx, debtorID, window)
	if err != nil {
		return nil, err
	}
	breached, err := s.store.CountBreachedAgreements(ctx, debtorID)
	if err != nil {
		return nil, err
	}
	recurrences, err := s.store.CountRecurrences(ctx, debtorID, now.AddDate(0, -6, 0))
	if err != nil {
		return nil, err
	}

	decision := EvaluateEscalation(EscalationInput{
		TotalOpenAmount:          total,
		MaxDaysLate:              maxLate,
		IgnoredContacts:          ignored,
		BreachedAgreements:       breached,
		RiskScore:                debtor.RiskScore,
		RecurrenceCount:          recurrences,
		AmountThreshold:          s.cfg.EscalationAmountThreshold,
		IgnoredContactsThreshold: s.cfg.IgnoredContactsThreshold,
	})

	if decision.Escalate && debtor.LegalStatus == models.StatusRegular {
		err := s.Transition(ctx, debtorID, models.StatusPendenteGrave, decision.ReasonCodes, models.ActorSystem, "")
		if err != nil {
			return nil, err
		}
		s.log.Infof("Debtor %d escalated automatically: %v (total %s, %d days late)",
			debtorID, decision.ReasonCodes, FormatCurrency(RoundCurrency(total)), maxLate)
	}
	return &decision, nil
}

// staleCaseThreshold is the number of late days after which an open case
// raises an internal no-response alert.
const staleCaseThreshold = 10
