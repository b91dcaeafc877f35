package models

import "time"

// Agreement statuses
const (
	AgreementProposed   = "proposed"
	AgreementAccepted   = "accepted"
	AgreementFulfilling = "fulfilling"
	AgreementFulfilled  = "fulfilled"
	AgreementBreached   = "breached"
)

// Agreement is a negotiated payment plan over a case
type Agreement struct {
	ID               int64     `json:"id"`
	CaseID           int64     `json:"case_id"`
	OriginalAmount   float64   `json:"original_amount"`
	AgreedAmount     float64   `json:"agreed_amount"`
	Installments     int       `json:"installments"`
	BreachPenaltyPct float64   `json:"breach_penalty_pct"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
