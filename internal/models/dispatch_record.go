package models

import "time"

// Dispatch channels
const (
	ChannelChat  = "chat"
	ChannelEmail = "email"
)

// Dispatch outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// DispatchRecord is one delivery attempt of a rendered message. The ledger is
// append-only and holds at most one success record per (case, rule), enforced
// by a partial unique index at insert time.
type DispatchRecord struct {
	ID          int64     `json:"id"`
	CaseID      int64     `json:"case_id"`
	RuleID      int64     `json:"rule_id"`
	Channel     string    `json:"channel"`
	Destination string    `json:"destination"`
	Content     string    `json:"content"`
	Outcome     string    `json:"outcome"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
