package service

import (
	"errors"
	"fmt"

	"github.com/rmaffei/cobranca-service/internal/models"
)

// ErrDuplicateDispatch is returned by the store when inserting a second success
// record for the same (case, rule) pair. Callers treat it as already-sent.
var ErrDuplicateDispatch = errors.New("dispatch already succeeded for case and rule")

// ValidationError rejects bad input before any persistence happens
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing case, debtor, notice, agreement or
// template. Key carries the identifier for string-keyed entities.
type NotFoundError struct {
	Entity string
	ID     int64
	Key    string
}

func (e *NotFoundError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InvalidTransitionError reports a legal-status transition outside the allowed graph
type InvalidTransitionError struct {
	DebtorID int64
	From     models.LegalStatus
	To       models.LegalStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for debtor %d: %s -> %s", e.DebtorID, e.From, e.To)
}

// ConcurrencyConflictError reports a lost compare-and-swap on a debtor's status.
// The caller must re-read the current status and retry or surface the conflict.
type ConcurrencyConflictError struct {
	DebtorID int64
	Expected models.LegalStatus
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("status of debtor %d changed concurrently (expected %s)", e.DebtorID, e.Expected)
}

// ChannelError reports a delivery failure on a chat or email channel
type ChannelError struct {
	Channel string
	Reason  string
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s delivery failed: %s", e.Channel, e.Reason)
}
