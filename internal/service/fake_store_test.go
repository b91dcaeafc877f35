package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rmaffei/cobranca-service/internal/config"
	"github.com/rmaffei/cobranca-service/internal/models"
	"github.com/sirupsen/logrus"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory Store holding the same invariants as the postgres
// repository: the success constraint on (case, rule), the status CAS, and the
// (case, kind) alert uniqueness.
type fakeStore struct {
	mu sync.Mutex

	debtors    map[int64]*models.Debtor
	cases      map[int64]*models.Case
	rules      []*models.ReminderRule
	templates  map[string]*models.MessageTemplate
	dispatches []*models.DispatchRecord
	logs       []*models.EscalationLog
	notices    map[int64]*models.Notice
	agreements map[int64]*models.Agreement
	alerts     []*models.InternalAlert

	ignoredContacts int
	nextID          int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		debtors:    make(map[int64]*models.Debtor),
		cases:      make(map[int64]*models.Case),
		templates:  make(map[string]*models.MessageTemplate),
		notices:    make(map[int64]*models.Notice),
		agreements: make(map[int64]*models.Agreement),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addDebtor(d *models.Debtor) *models.Debtor {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == 0 {
		d.ID = f.id()
	}
	if d.LegalStatus == "" {
		d.LegalStatus = models.StatusRegular
	}
	f.debtors[d.ID] = d
	return d
}

func (f *fakeStore) addCase(c *models.Case) *models.Case {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == 0 {
		c.ID = f.id()
	}
	f.cases[c.ID] = c
	return c
}

func (f *fakeStore) addRule(offset int, key string) *models.ReminderRule {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule := &models.ReminderRule{ID: f.id(), DayOffset: offset, TemplateKey: key, Active: true}
	f.rules = append(f.rules, rule)
	return rule
}

func (f *fakeStore) addTemplate(key, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates[key] = &models.MessageTemplate{Key: key, Body: body}
}

func (f *fakeStore) successCount(caseID, ruleID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rec := range f.dispatches {
		if rec.CaseID == caseID && rec.RuleID == ruleID && rec.Outcome == models.OutcomeSuccess {
			n++
		}
	}
	return n
}

func (f *fakeStore) FindDebtorByID(_ context.Context, id int64) (*models.Debtor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.debtors[id]
	if !ok {
		return nil, &NotFoundError{Entity: "debtor", ID: id}
	}
	copy := *d
	return &copy, nil
}

func (f *fakeStore) UpdateDebtorStatusCAS(_ context.Context, id int64, from, to models.LegalStatus, escalatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.debtors[id]
	if !ok {
		return &NotFoundError{Entity: "debtor", ID: id}
	}
	if d.LegalStatus != from {
		return &ConcurrencyConflictError{DebtorID: id, Expected: from}
	}
	d.LegalStatus = to
	d.LastEscalationAt = &escalatedAt
	return nil
}

func (f *fakeStore) ResetDebtorStatus(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.debtors[id]
	if !ok {
		return &NotFoundError{Entity: "debtor", ID: id}
	}
	d.LegalStatus = models.StatusRegular
	return nil
}

func (f *fakeStore) SetDebtorBreached(_ context.Context, id int64, breached bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.debtors[id]
	if !ok {
		return &NotFoundError{Entity: "debtor", ID: id}
	}
	d.AgreementBreached = breached
	return nil
}

func (f *fakeStore) CreateCase(_ context.Context, c *models.Case) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id()
	c.CreatedAt = testNow
	c.UpdatedAt = testNow
	f.cases[c.ID] = c
	return nil
}

func (f *fakeStore) FindCaseByID(_ context.Context, id int64) (*models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[id]
	if !ok {
		return nil, &NotFoundError{Entity: "case", ID: id}
	}
	copy := *c
	return &copy, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (f *fakeStore) FindCasesDueOn(_ context.Context, due time.Time, statuses []string) ([]*models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Case
	for _, c := range f.cases {
		if !sameDay(c.DueDate, due) {
			continue
		}
		for _, st := range statuses {
			if c.Status == st {
				copy := *c
				out = append(out, &copy)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) FindOpenCasesByDebtor(_ context.Context, debtorID int64) ([]*models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Case
	for _, c := range f.cases {
		if c.DebtorID == debtorID && c.Status != models.CaseStatusSettled {
			copy := *c
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeStore) FindOpenCasesDueBefore(_ context.Context, before time.Time) ([]*models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Case
	for _, c := range f.cases {
		if c.Status != models.CaseStatusSettled && c.DueDate.Before(before) && !sameDay(c.DueDate, before) {
			copy := *c
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkOverdueCases(_ context.Context, dueBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rolled int64
	for _, c := range f.cases {
		if c.Status == models.CaseStatusUpcoming && c.DueDate.Before(dueBefore) && !sameDay(c.DueDate, dueBefore) {
			c.Status = models.CaseStatusOverdue
			rolled++
		}
	}
	return rolled, nil
}

func (f *fakeStore) SettleCase(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[id]
	if !ok {
		return &NotFoundError{Entity: "case", ID: id}
	}
	c.Status = models.CaseStatusSettled
	return nil
}

func (f *fakeStore) ListActiveReminderRules(_ context.Context) ([]*models.ReminderRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.ReminderRule(nil), f.rules...), nil
}

func (f *fakeStore) FindTemplate(_ context.Context, key string) (*models.MessageTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[key]
	if !ok {
		return nil, &NotFoundError{Entity: "template", Key: key}
	}
	return t, nil
}

func (f *fakeStore) HasSucceededBefore(_ context.Context, caseID, ruleID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.dispatches {
		if rec.CaseID == caseID && rec.RuleID == ruleID && rec.Outcome == models.OutcomeSuccess {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) RecordDispatch(_ context.Context, rec *models.DispatchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.Outcome == models.OutcomeSuccess {
		for _, existing := range f.dispatches {
			if existing.CaseID == rec.CaseID && existing.RuleID == rec.RuleID && existing.Outcome == models.OutcomeSuccess {
				return ErrDuplicateDispatch
			}
		}
	}
	rec.ID = f.id()
	rec.CreatedAt = testNow
	f.dispatches = append(f.dispatches, rec)
	return nil
}

func (f *fakeStore) AppendEscalationLog(_ context.Context, entry *models.EscalationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = f.id()
	entry.CreatedAt = testNow
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeStore) CountRecurrences(_ context.Context, debtorID int64, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, entry := range f.logs {
		if entry.DebtorID == debtorID && entry.FromStatus == models.StatusRegular && !entry.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountIgnoredContacts(_ context.Context, _ int64, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ignoredContacts, nil
}

func (f *fakeStore) CountBreachedAgreements(_ context.Context, debtorID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.agreements {
		if a.Status != models.AgreementBreached {
			continue
		}
		if c, ok := f.cases[a.CaseID]; ok && c.DebtorID == debtorID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateNotice(_ context.Context, n *models.Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = f.id()
	n.CreatedAt = testNow
	f.notices[n.ID] = n
	return nil
}

func (f *fakeStore) FindNoticeByID(_ context.Context, id int64) (*models.Notice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notices[id]
	if !ok {
		return nil, &NotFoundError{Entity: "notice", ID: id}
	}
	copy := *n
	return &copy, nil
}

func (f *fakeStore) MarkNoticeResponded(_ context.Context, id int64, at time.Time, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notices[id]
	if !ok {
		return &NotFoundError{Entity: "notice", ID: id}
	}
	n.Responded = true
	n.RespondedAt = &at
	n.ResponseNote = note
	return nil
}

func (f *fakeStore) FindAgreementByID(_ context.Context, id int64) (*models.Agreement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.agreements[id]
	if !ok {
		return nil, &NotFoundError{Entity: "agreement", ID: id}
	}
	copy := *a
	return &copy, nil
}

func (f *fakeStore) UpdateAgreementStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.agreements[id]
	if !ok {
		return &NotFoundError{Entity: "agreement", ID: id}
	}
	a.Status = status
	return nil
}

func (f *fakeStore) HasAlert(_ context.Context, caseID int64, kind string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.CaseID == caseID && a.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateAlert(_ context.Context, a *models.InternalAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.alerts {
		if existing.CaseID == a.CaseID && existing.Kind == a.Kind {
			return nil
		}
	}
	a.ID = f.id()
	a.CreatedAt = testNow
	f.alerts = append(f.alerts, a)
	return nil
}

type sentMessage struct {
	Destination string
	Text        string
}

// fakeSender records sends and optionally fails every attempt
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	failWith error
}

func (f *fakeSender) Send(_ context.Context, destination, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.sent = append(f.sent, sentMessage{Destination: destination, Text: text})
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultPenaltyPct:         2.0,
		DefaultDailyInterestPct:   0.033,
		EscalationAmountThreshold: 5000.0,
		IgnoredContactsThreshold:  3,
		IgnoredContactsWindowDays: 30,
		NegotiationURL:            "https://franquia.example.com/negociar",
		ChannelSendRate:           1000,
	}
}

func newTestService(store *fakeStore) (*Service, *fakeSender, *fakeSender) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	chat := &fakeSender{}
	mail := &fakeSender{}
	svc := NewService(store, chat, mail, logger, testConfig())
	svc.now = func() time.Time { return testNow }
	return svc, chat, mail
}
