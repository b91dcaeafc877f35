package models

import "time"

// AlertNoResponse10Days flags open cases past ten days late with no reaction.
// Alerts are internal only and never dispatched over a channel.
const AlertNoResponse10Days = "no_response_10d"

// InternalAlert is an informational flag on a case, unique per (case, kind)
type InternalAlert struct {
	ID        int64     `json:"id"`
	CaseID    int64     `json:"case_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
