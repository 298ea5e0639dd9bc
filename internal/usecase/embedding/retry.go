package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/metrics"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 200 * time.Millisecond
	DefaultMaxBackoff  = 2 * time.Second
)

// RetryPolicy bounds the attempts and the exponential backoff between them.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Backoff returns the delay before the attempt following attempt (1-based):
// base * 2^(attempt-1), capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseBackoff
	for i := 1; i < attempt && d < p.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, p.MaxBackoff)
}

// RetryingEmbedder retries transient provider failures. Once attempts run out,
// or on a failure that cannot succeed when repeated, it returns
// *domain.EmbeddingServiceError.
type RetryingEmbedder struct {
	inner  domain.Embedder
	policy RetryPolicy
	logger *zap.Logger
	wait   func(ctx context.Context, d time.Duration) error
}

// NewRetryingEmbedder wraps inner. Zero policy fields take the defaults.
func NewRetryingEmbedder(inner domain.Embedder, policy RetryPolicy, logger *zap.Logger) *RetryingEmbedder {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.BaseBackoff <= 0 {
		policy.BaseBackoff = DefaultBaseBackoff
	}
	if policy.MaxBackoff < policy.BaseBackoff {
		policy.MaxBackoff = max(DefaultMaxBackoff, policy.BaseBackoff)
	}
	return &RetryingEmbedder{inner: inner, policy: policy, logger: logger, wait: sleep}
}

// Embed implements domain.Embedder.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var res domain.EmbeddingResult
	err := r.do(ctx, "embed", func() error {
		var err error
		res, err = r.inner.Embed(ctx, text)
		return err //nolint:wrapcheck // wrapped by do
	})
	return res, err
}

// BatchEmbed implements domain.BatchEmbedder. The whole batch is retried.
func (r *RetryingEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var res domain.BatchEmbeddingResult
	err := r.do(ctx, "batch", func() error {
		var err error
		res, err = domain.BatchEmbed(ctx, r.inner, texts)
		return err //nolint:wrapcheck // wrapped by do
	})
	return res, err
}

// HealthCheck delegates when the inner embedder supports it.
func (r *RetryingEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through
	}
	return nil
}

func (r *RetryingEmbedder) do(ctx context.Context, op string, call func() error) error {
	var last error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		last = call()
		if last == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s aborted: %w", op, ctx.Err())
		}
		if !retryable(last) {
			return &domain.EmbeddingServiceError{Attempts: attempt, Err: last}
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Backoff(attempt)
		r.logger.Warn("Embedding call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(last),
		)
		metrics.EmbeddingRetriesTotal.WithLabelValues(op).Inc()
		if err := r.wait(ctx, delay); err != nil {
			return fmt.Errorf("%s aborted: %w", op, err)
		}
	}
	return &domain.EmbeddingServiceError{Attempts: r.policy.MaxAttempts, Err: last}
}

// retryable accepts only provider errors that may succeed when repeated.
func retryable(err error) bool {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
