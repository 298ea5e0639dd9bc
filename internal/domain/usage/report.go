// Package usage describes token consumption reports against the shared budget.
package usage

import (
	"errors"
	"fmt"
	"time"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ErrInvalidPeriod signals an unknown aggregation period.
var ErrInvalidPeriod = errors.New("invalid usage period")

// ParsePeriod maps "day" and "month"; an empty string means month.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodMonth:
		return PeriodMonth, nil
	case PeriodDay:
		return PeriodDay, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// Bounds returns the UTC period containing now, end exclusive.
func (p Period) Bounds(now time.Time) (start, end time.Time) {
	now = now.UTC()
	if p == PeriodDay {
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	}
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Report is the token usage of the process for one period.
// Embedding and generation tokens share the budget.
// A zero TokensLimit means unlimited, in which case TokensRemaining is -1.
type Report struct {
	Period          Period
	Start           time.Time
	End             time.Time
	TokensUsed      int64
	TokensLimit     int64
	TokensRemaining int64
}

// Exhausted reports whether a limited budget has no tokens left.
func (r Report) Exhausted() bool {
	return r.TokensLimit > 0 && r.TokensRemaining <= 0
}
