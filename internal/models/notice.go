package models

import "time"

// NoticeType selects one of the five fixed notice template variants
type NoticeType string

const (
	NoticeExtrajudicial NoticeType = "extrajudicial"
	NoticeFormal        NoticeType = "formal"
	NoticeUltimaChance  NoticeType = "ultima_chance"
	NoticePreJudicial   NoticeType = "pre_judicial"
	NoticeJudicial      NoticeType = "judicial"
)

// NoticeTypes lists every valid notice type
var NoticeTypes = []NoticeType{
	NoticeExtrajudicial,
	NoticeFormal,
	NoticeUltimaChance,
	NoticePreJudicial,
	NoticeJudicial,
}

// Valid reports whether t is a known notice type
func (t NoticeType) Valid() bool {
	for _, nt := range NoticeTypes {
		if nt == t {
			return true
		}
	}
	return false
}

// Notice is a formally generated legal communication with a tracked response deadline
type Notice struct {
	ID               int64      `json:"id"`
	CaseID           int64      `json:"case_id"`
	DebtorID         int64      `json:"debtor_id"`
	Type             NoticeType `json:"type"`
	Content          string     `json:"content"`
	ResponseDeadline time.Time  `json:"response_deadline"`
	Responded        bool       `json:"responded"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
	ResponseNote     string     `json:"response_note,omitempty"`
	Actor            string     `json:"actor"`
	CreatedAt        time.Time  `json:"created_at"`
}
