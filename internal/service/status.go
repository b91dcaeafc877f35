package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rmaffei/cobranca-service/internal/models"
)

// allowedTransition reports whether from -> to is a legal move. The graph is
// strictly forward one step at a time, with two exceptions: any non-regular
// state may jump straight to resolvido, and any state may reset to regular
// (the reset path, handled outside Transition, is never logged).
func allowedTransition(from, to models.LegalStatus) bool {
	fromRank := from.Rank()
	toRank := to.Rank()
	if fromRank < 0 || toRank < 0 {
		return false
	}
	if to == models.StatusResolvido && from != models.StatusRegular {
		return true
	}
	return toRank == fromRank+1
}

// Transition moves a debtor to a new legal status, appending an audit entry.
// The status write is a compare-and-swap on the current status; a conflict
// surfaces as ConcurrencyConflictError and the caller must re-read and retry.
func (s *Service) Transition(ctx context.Context, debtorID int64, to models.LegalStatus, reasons []string, actor, note string) error {
	if to.Rank() < 0 {
		return &ValidationError{Field: "status", Reason: "unknown legal status " + string(to)}
	}
	d, err := s.store.FindDebtorByID(ctx, debtorID)
	if err != nil {
		return err
	}
	if !allowedTransition(d.LegalStatus, to) {
		return &InvalidTransitionError{DebtorID: debtorID, From: d.LegalStatus, To: to}
	}

	now := s.now()
	if err := s.store.UpdateDebtorStatusCAS(ctx, debtorID, d.LegalStatus, to, now); err != nil {
		return err
	}

	entry := &models.EscalationLog{
		DebtorID:    debtorID,
		FromStatus:  d.LegalStatus,
		ToStatus:    to,
		ReasonCodes: reasons,
		Actor:       actor,
		Note:        note,
	}
	if err := s.store.AppendEscalationLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to log transition for debtor %d: %w", debtorID, err)
	}

	s.log.Infof("Debtor %d: %s -> %s by %s (%s)", debtorID, d.LegalStatus, to, actor, strings.Join(reasons, ","))
	return nil
}

// advanceTo walks the debtor forward one step at a time until it reaches
// target, logging each hop. Already at or past target is a no-op.
func (s *Service) advanceTo(ctx context.Context, debtorID int64, target models.LegalStatus, reasons []string, actor, note string) error {
	for {
		d, err := s.store.FindDebtorByID(ctx, debtorID)
		if err != nil {
			return err
		}
		if d.LegalStatus.Rank() >= target.Rank() {
			return nil
		}
		next := models.ForwardOrder[d.LegalStatus.Rank()+1]
		if err := s.Transition(ctx, debtorID, next, reasons, actor, note); err != nil {
			return err
		}
	}
}
