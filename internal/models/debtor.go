package models

import "time"

// LegalStatus is the escalation stage of a debtor entity
type LegalStatus string

// Legal statuses in forward escalation order
const (
	StatusRegular       LegalStatus = "regular"
	StatusPendenteGrave LegalStatus = "pendente_grave"
	StatusNotificado    LegalStatus = "notificado"
	StatusEmAnalise     LegalStatus = "em_analise"
	StatusPreProcesso   LegalStatus = "pre_processo"
	StatusAcionado      LegalStatus = "acionado"
	StatusResolvido     LegalStatus = "resolvido"
)

// ForwardOrder lists every legal status from least to most escalated
var ForwardOrder = []LegalStatus{
	StatusRegular,
	StatusPendenteGrave,
	StatusNotificado,
	StatusEmAnalise,
	StatusPreProcesso,
	StatusAcionado,
	StatusResolvido,
}

// Rank returns the position of s in the forward order, or -1 for unknown statuses
func (s LegalStatus) Rank() int {
	for i, st := range ForwardOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Debtor represents the franchised business unit responsible for one or more cases
type Debtor struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	UnitCode          string      `json:"unit_code"`
	TaxID             string      `json:"tax_id"`
	Phone             string      `json:"phone"`
	Email             string      `json:"email"`
	RiskScore         int         `json:"risk_score"`
	AgreementBreached bool        `json:"agreement_breached"`
	LegalStatus       LegalStatus `json:"legal_status"`
	LastEscalationAt  *time.Time  `json:"last_escalation_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}
