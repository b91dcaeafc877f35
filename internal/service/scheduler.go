package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rmaffei/cobranca-service/internal/models"
	"github.com/rmaffei/cobranca-service/internal/utils"
)

const batchWorkers = 4

// RuleSummary aggregates one rule's results for a batch run
type RuleSummary struct {
	RuleID    int64 `json:"rule_id"`
	DayOffset int   `json:"day_offset"`
	Matched   int   `json:"matched"`
	Sent      int   `json:"sent"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
}

// BatchFailure describes one case whose send failed during the batch
type BatchFailure struct {
	CaseID int64  `json:"case_id"`
	RuleID int64  `json:"rule_id"`
	Reason string `json:"reason"`
}

// BatchSummary is the result of one reminder batch run
type BatchSummary struct {
	RanAt         time.Time      `json:"ran_at"`
	Rules         []RuleSummary  `json:"rules"`
	Failures      []BatchFailure `json:"failures"`
	AlertsCreated int            `json:"alerts_created"`
}

type reminderJob struct {
	rule *models.ReminderRule
	c    *models.Case
}

// RunReminderBatch executes one pass of the reminder rules, intended to run
// once daily. Each rule matches cases at exactly its day offset from the due
// date, so under continuous daily execution a rule fires at most once per
// case lifetime; a skipped day permanently misses that window, there is no
// retroactive catch-up. Re-running the batch the same day is safe: the
// dispatch ledger's success constraint makes every send exactly-once per
// (case, rule). Individual failures never abort the batch.
func (s *Service) RunReminderBatch(ctx context.Context) (*BatchSummary, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	summary := &BatchSummary{RanAt: now}

	// Roll upcoming cases past their due date over to overdue first, so the
	// post-due rules see cases that were imported before they fell due.
	rolled, err := s.store.MarkOverdueCases(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to roll over due cases: %w", err)
	}
	if rolled > 0 {
		s.log.Infof("Rolled %d upcoming case(s) over to overdue", rolled)
	}

	rules, err := s.store.ListActiveReminderRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder rules: %w", err)
	}

	var jobs []reminderJob
	ruleIdx := make(map[int64]int)
	for _, rule := range rules {
		// A case is daysLate == offset when its due date is offset days ago.
		due := today.AddDate(0, 0, -rule.DayOffset)
		statuses := []string{models.CaseStatusOpen, models.CaseStatusOverdue}
		if rule.DayOffset < 0 {
			statuses = []string{models.CaseStatusUpcoming}
		}
		matches, err := s.store.FindCasesDueOn(ctx, due, statuses)
		if err != nil {
			s.log.Errorf("Rule %d: case lookup failed: %v", rule.ID, err)
			summary.Failures = append(summary.Failures, BatchFailure{RuleID: rule.ID, Reason: err.Error()})
			continue
		}
		ruleIdx[rule.ID] = len(summary.Rules)
		summary.Rules = append(summary.Rules, RuleSummary{
			RuleID:    rule.ID,
			DayOffset: rule.DayOffset,
			Matched:   len(matches),
		})
		for _, c := range matches {
			jobs = append(jobs, reminderJob{rule: rule, c: c})
		}
	}

	// Case processing is order-insensitive; a bounded worker pool fans the
	// jobs out while the per-channel rate limiter throttles actual sends.
	var mu sync.Mutex
	var wg sync.WaitGroup
	jobCh := make(chan reminderJob)
	for i := 0; i < batchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				outcome, reason := s.processReminder(ctx, job.rule, job.c)
				mu.Lock()
				rs := &summary.Rules[ruleIdx[job.rule.ID]]
				switch outcome {
				case models.OutcomeSuccess:
					rs.Sent++
				case models.OutcomeFailure:
					rs.Failed++
					summary.Failures = append(summary.Failures, BatchFailure{
						CaseID: job.c.ID, RuleID: job.rule.ID, Reason: reason,
					})
				default:
					rs.Skipped++
				}
				mu.Unlock()
			}
		}()
	}
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()

	created, err := s.raiseStaleAlerts(ctx, today)
	if err != nil {
		s.log.Errorf("Stale-case pass failed: %v", err)
		summary.Failures = append(summary.Failures, BatchFailure{Reason: err.Error()})
	}
	summary.AlertsCreated = created

	s.log.Infof("Reminder batch done: %d rules, %d jobs, %d failures, %d alerts",
		len(summary.Rules), len(jobs), len(summary.Failures), created)
	return summary, nil
}

// processReminder handles a single (case, rule) pair. Returns the dispatch
// outcome, or "" when the pair was skipped because it already succeeded.
func (s *Service) processReminder(ctx context.Context, rule *models.ReminderRule, c *models.Case) (string, string) {
	sent, err := s.store.HasSucceededBefore(ctx, c.ID, rule.ID)
	if err != nil {
		return models.OutcomeFailure, err.Error()
	}
	if sent {
		return "", ""
	}

	debtor, err := s.store.FindDebtorByID(ctx, c.DebtorID)
	if err != nil {
		return models.OutcomeFailure, err.Error()
	}
	tmpl, err := s.store.FindTemplate(ctx, rule.TemplateKey)
	if err != nil {
		return models.OutcomeFailure, err.Error()
	}
	content := RenderTemplate(tmpl.Body, s.templateVars(debtor, c))

	channel, destination := pickDestination(debtor)
	rec := &models.DispatchRecord{
		CaseID:      c.ID,
		RuleID:      rule.ID,
		Channel:     channel,
		Destination: destination,
		Content:     content,
	}
	if destination == "" {
		rec.Outcome = models.OutcomeFailure
		rec.ErrorDetail = "debtor has no contact address"
		if err := s.store.RecordDispatch(ctx, rec); err != nil {
			s.log.Errorf("Case %d rule %d: failed to record dispatch: %v", c.ID, rule.ID, err)
		}
		return models.OutcomeFailure, rec.ErrorDetail
	}

	if err := s.send(ctx, channel, destination, content); err != nil {
		s.log.Errorf("Case %d rule %d: send over %s failed: %v", c.ID, rule.ID, channel, err)
		rec.Outcome = models.OutcomeFailure
		rec.ErrorDetail = err.Error()
		if recErr := s.store.RecordDispatch(ctx, rec); recErr != nil {
			s.log.Errorf("Case %d rule %d: failed to record dispatch: %v", c.ID, rule.ID, recErr)
		}
		return models.OutcomeFailure, err.Error()
	}

	// The insert is the commitment point: a duplicate-success violation here
	// means a concurrent worker won the race, so the pair counts as skipped.
	rec.Outcome = models.OutcomeSuccess
	if err := s.store.RecordDispatch(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateDispatch) {
			s.log.Warnf("Case %d rule %d: concurrent dispatch already recorded", c.ID, rule.ID)
			return "", ""
		}
		return models.OutcomeFailure, err.Error()
	}
	s.log.Infof("Case %d rule %d: reminder sent over %s", c.ID, rule.ID, channel)
	return models.OutcomeSuccess, ""
}

// raiseStaleAlerts creates the internal no-response alert for every open case
// more than staleCaseThreshold days late, once per case. The alerts never
// leave the system.
func (s *Service) raiseStaleAlerts(ctx context.Context, today time.Time) (int, error) {
	cutoff := today.AddDate(0, 0, -staleCaseThreshold)
	stale, err := s.store.FindOpenCasesDueBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale cases: %w", err)
	}

	created := 0
	for _, c := range stale {
		exists, err := s.store.HasAlert(ctx, c.ID, models.AlertNoResponse10Days)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		alert := &models.InternalAlert{
			CaseID:  c.ID,
			Kind:    models.AlertNoResponse10Days,
			Message: fmt.Sprintf("case %d is %d days late with no response", c.ID, c.DaysLate(today)),
		}
		if err := s.store.CreateAlert(ctx, alert); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// pickDestination chooses the channel for a debtor: chat when a phone number
// exists, email otherwise. Phone numbers are normalized to digits with a
// country-code prefix, as the chat provider requires.
func pickDestination(d *models.Debtor) (string, string) {
	if phone := utils.NormalizePhone(d.Phone); phone != "" {
		return models.ChannelChat, phone
	}
	if d.Email != "" {
		return models.ChannelEmail, d.Email
	}
	return models.ChannelChat, ""
}
