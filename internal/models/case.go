package models

import "time"

// Case lifecycle statuses. A case is terminal once settled.
const (
	CaseStatusUpcoming = "upcoming"
	CaseStatusOpen     = "open"
	CaseStatusOverdue  = "overdue"
	CaseStatusSettled  = "settled"
)

// Case represents a single collection record under a debtor
type Case struct {
	ID        int64     `json:"id"`
	DebtorID  int64     `json:"debtor_id"`
	CaseType  string    `json:"case_type"`
	Principal float64   `json:"principal"`
	DueDate   time.Time `json:"due_date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DaysLate returns how many whole days the case is past due as of now.
// Never negative and never persisted; always derived from the due date.
func (c *Case) DaysLate(now time.Time) int {
	due := time.Date(c.DueDate.Year(), c.DueDate.Month(), c.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// IsOpen reports whether the case still counts toward the debtor's open amount
func (c *Case) IsOpen() bool {
	return c.Status != CaseStatusSettled
}
