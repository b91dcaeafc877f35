package models

import "time"

// ActorSystem identifies automatic transitions in the escalation log
const ActorSystem = "system"

// Escalation reason codes
const (
	ReasonValorAlto         = "valor_alto"
	ReasonContatosIgnorados = "contatos_ignorados"
	ReasonRiscoZero         = "risco_zero"
	ReasonAcordoQuebrado    = "acordo_quebrado"
	ReasonReincidencia      = "reincidencia"
)

// EscalationLog is one immutable audit entry for a legal-status transition
type EscalationLog struct {
	ID          int64       `json:"id"`
	DebtorID    int64       `json:"debtor_id"`
	CaseID      *int64      `json:"case_id,omitempty"`
	FromStatus  LegalStatus `json:"from_status"`
	ToStatus    LegalStatus `json:"to_status"`
	ReasonCodes []string    `json:"reason_codes"`
	Actor       string      `json:"actor"`
	Note        string      `json:"note,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
