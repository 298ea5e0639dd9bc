// Package budget enforces a daily and monthly token budget shared by every
// provider call: document and query embeddings as well as question generation.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/metrics"
)

// Action defines behavior when the budget is exhausted.
type Action string

const (
	// ActionWarn logs a warning but lets the call through.
	ActionWarn Action = "warn"
	// ActionReject fails the call with domain.ErrQuotaExceeded.
	ActionReject Action = "reject"
)

// IsValid checks if the action is supported.
func (a Action) IsValid() bool {
	return a == ActionWarn || a == ActionReject
}

// Store persists counters across restarts. IncrBy may be called repeatedly.
type Store interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// Tracker is an in-memory token counter with optional write-behind persistence.
// Check never leaves the process.
type Tracker struct {
	mu           sync.Mutex
	scope        string
	dailyLimit   int64
	monthlyLimit int64
	action       Action
	dailyUsed    int64
	monthlyUsed  int64
	day          time.Time
	month        time.Time
	now          func() time.Time
	store        Store
	logger       *zap.Logger
}

// NewTracker creates a tracker. A zero limit means unlimited.
func NewTracker(scope string, dailyLimit, monthlyLimit int64, action Action, logger *zap.Logger) *Tracker {
	t := &Tracker{
		scope:        scope,
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
	t.day, t.month = periods(t.now())
	return t
}

// WithStore attaches persistence and loads the counters of the current period.
func (t *Tracker) WithStore(ctx context.Context, store Store) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store = store
	now := t.now()
	if v, err := store.Get(ctx, t.dailyKey(now)); err == nil {
		t.dailyUsed = v
	} else {
		t.logger.Warn("Failed to load daily token budget", zap.Error(err))
	}
	if v, err := store.Get(ctx, t.monthlyKey(now)); err == nil {
		t.monthlyUsed = v
	} else {
		t.logger.Warn("Failed to load monthly token budget", zap.Error(err))
	}

	t.logger.Info("Token budget loaded",
		zap.String("scope", t.scope),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("monthly_used", t.monthlyUsed),
	)
	return t
}

func (t *Tracker) dailyKey(at time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", domain.KeyPrefix, t.scope, at.Format("2006-01-02"))
}

func (t *Tracker) monthlyKey(at time.Time) string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", domain.KeyPrefix, t.scope, at.Format("2006-01"))
}

// Check reports whether a new provider call may start.
func (t *Tracker) Check(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	daily := t.dailyLimit > 0 && t.dailyUsed >= t.dailyLimit
	monthly := t.monthlyLimit > 0 && t.monthlyUsed >= t.monthlyLimit
	if !daily && !monthly {
		return nil
	}

	if t.action == ActionReject {
		if daily {
			return fmt.Errorf("%w: daily limit %d reached", domain.ErrQuotaExceeded, t.dailyLimit)
		}
		return fmt.Errorf("%w: monthly limit %d reached", domain.ErrQuotaExceeded, t.monthlyLimit)
	}

	t.logger.Warn("Token budget exceeded",
		zap.String("scope", t.scope),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("daily_limit", t.dailyLimit),
		zap.Int64("monthly_used", t.monthlyUsed),
		zap.Int64("monthly_limit", t.monthlyLimit),
	)
	return nil
}

// Record adds consumed tokens, updates the remaining-budget gauges and
// writes the increment to the store when one is attached.
func (t *Tracker) Record(tokens int64) {
	if tokens <= 0 {
		return
	}

	t.mu.Lock()
	t.rollover()
	t.dailyUsed += tokens
	t.monthlyUsed += tokens
	daily, monthly := t.remaining()
	store := t.store
	now := t.now()
	t.mu.Unlock()

	metrics.BudgetTokensRemaining.WithLabelValues("daily").Set(float64(daily))
	metrics.BudgetTokensRemaining.WithLabelValues("monthly").Set(float64(monthly))

	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, key := range []string{t.dailyKey(now), t.monthlyKey(now)} {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			t.logger.Warn("Failed to persist token budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left today, or -1 when unlimited.
func (t *Tracker) RemainingDaily() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	d, _ := t.remaining()
	return d
}

// RemainingMonthly returns tokens left this month, or -1 when unlimited.
func (t *Tracker) RemainingMonthly() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	_, m := t.remaining()
	return m
}

// Limits returns the configured daily and monthly limits, zero meaning unlimited.
func (t *Tracker) Limits() (daily, monthly int64) {
	return t.dailyLimit, t.monthlyLimit
}

// Used returns the daily and monthly totals.
func (t *Tracker) Used() (daily, monthly int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.dailyUsed, t.monthlyUsed
}

func (t *Tracker) remaining() (daily, monthly int64) {
	return left(t.dailyLimit, t.dailyUsed), left(t.monthlyLimit, t.monthlyUsed)
}

func left(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	if used >= limit {
		return 0
	}
	return limit - used
}

// rollover zeroes counters when the day or month changes. Caller holds mu.
func (t *Tracker) rollover() {
	day, month := periods(t.now())
	if day.After(t.day) {
		t.dailyUsed = 0
		t.day = day
	}
	if month.After(t.month) {
		t.monthlyUsed = 0
		t.month = month
	}
}

func periods(now time.Time) (day, month time.Time) {
	day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return day, month
}
