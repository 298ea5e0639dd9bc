// Package usage reports token consumption against the shared budget.
package usage

import (
	"context"
	"time"

	domusage "github.com/challasaiteja/gemini-quizify/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil when no budget is configured;
// reports then show zero usage and an unlimited budget.
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// Report builds a usage report for the current day or month.
func (s *Service) Report(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Bounds(s.now())
	r := domusage.Report{Period: period, Start: start, End: end, TokensRemaining: -1}
	if s.br == nil {
		return r
	}

	dailyLimit, monthlyLimit := s.br.Limits()
	dailyUsed, monthlyUsed := s.br.Used()
	if period == domusage.PeriodDay {
		r.TokensLimit, r.TokensUsed = dailyLimit, dailyUsed
	} else {
		r.TokensLimit, r.TokensUsed = monthlyLimit, monthlyUsed
	}
	if r.TokensLimit > 0 {
		r.TokensRemaining = max(r.TokensLimit-r.TokensUsed, 0)
	}
	return r
}
