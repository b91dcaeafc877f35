package models

import "time"

// ReminderRule maps a day offset from the due date to a message template.
// Negative offsets fire before the due date, positive after.
type ReminderRule struct {
	ID          int64     `json:"id"`
	DayOffset   int       `json:"day_offset"`
	TemplateKey string    `json:"template_key"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessageTemplate is the stored body for a template key, with {{name}} placeholders
type MessageTemplate struct {
	Key       string    `json:"key"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}
