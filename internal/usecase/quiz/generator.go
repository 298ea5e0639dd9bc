// Package quiz generates question banks from retrieved context and serves
// them one question at a time.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
	domquiz "github.com/challasaiteja/gemini-quizify/internal/domain/quiz"
	"github.com/challasaiteja/gemini-quizify/internal/metrics"
)

// Generator defaults.
const (
	DefaultMaxQuestions = 10
	DefaultTopK         = 5
	DefaultMaxAttempts  = 3
)

// Config bounds a generation run. Zero values take the defaults.
type Config struct {
	MaxQuestions int
	TopK         int
	MaxAttempts  int
}

func (c Config) withDefaults() Config {
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = DefaultMaxQuestions
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Generator fills a question bank one slot at a time.
type Generator struct {
	model  QuestionModel
	cfg    Config
	logger *zap.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(model QuestionModel, cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{model: model, cfg: cfg.withDefaults(), logger: logger}
}

// Validate checks a request without calling any collaborator.
func (g *Generator) Validate(topic string, n int) error {
	if strings.TrimSpace(topic) == "" {
		return domain.ErrInvalidTopic
	}
	if n < 1 || n > g.cfg.MaxQuestions {
		return &domain.InvalidCountError{N: n, Max: g.cfg.MaxQuestions}
	}
	return nil
}

// Generate produces up to n unique questions on topic. Each slot retrieves
// context from retriever, which may be nil or empty.
//
// When fewer than n questions are produced the partial bank is returned with
// *domain.IncompleteGenerationError. Retrieval failures, quota exhaustion and
// cancellation abort the run and also return the bank built so far.
func (g *Generator) Generate(ctx context.Context, topic string, n int, retriever Retriever) (*domquiz.Bank, error) {
	if err := g.Validate(topic, n); err != nil {
		return nil, err
	}
	topic = strings.TrimSpace(topic)

	start := time.Now()
	bank := domquiz.NewBank()
	logger := g.logger.With(zap.String("topic", topic), zap.Int("requested", n))

	var failures []error
	for slot := 0; slot < n; slot++ {
		chunks, err := g.retrieve(ctx, logger, topic, retriever)
		if err != nil {
			return bank, err
		}

		ok, last, err := g.fillSlot(ctx, logger.With(zap.Int("slot", slot)), bank, topic, chunks)
		if err != nil {
			return bank, err
		}
		if !ok {
			failures = append(failures, &domain.GenerationError{Slot: slot, Attempts: g.cfg.MaxAttempts, Last: last})
		}
	}

	complete := bank.Len() == n
	metrics.GenerationRunDuration.WithLabelValues(strconv.FormatBool(complete)).Observe(time.Since(start).Seconds())
	logger.Info("quiz generated",
		zap.Int("produced", bank.Len()),
		zap.Duration("duration", time.Since(start)),
	)

	if !complete {
		return bank, &domain.IncompleteGenerationError{Requested: n, Produced: bank.Len(), Failures: failures}
	}
	return bank, nil
}

func (g *Generator) retrieve(
	ctx context.Context, logger *zap.Logger, topic string, retriever Retriever,
) ([]document.Chunk, error) {
	if retriever == nil {
		logger.Warn("no collection, generating without context")
		return nil, nil
	}
	chunks, err := retriever.Query(ctx, topic, g.cfg.TopK)
	if errors.Is(err, domain.ErrEmptyCollection) {
		logger.Warn("empty collection, generating without context")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	return chunks, nil
}

// fillSlot makes up to MaxAttempts tries at one new question. It returns
// ok=false with the last attempt error when the slot stays empty, and a
// non-nil err only when the whole run must stop.
func (g *Generator) fillSlot(
	ctx context.Context, logger *zap.Logger, bank *domquiz.Bank, topic string, chunks []document.Chunk,
) (ok bool, last, err error) {
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, nil, fmt.Errorf("generate question: %w", err)
		}

		raw, err := g.model.GenerateQuestion(ctx, buildPrompt(topic, chunks, bank.Texts()))
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrQuotaExceeded) {
				return false, nil, fmt.Errorf("generate question: %w", err)
			}
			metrics.GenerationAttemptsTotal.WithLabelValues(metrics.OutcomeModelError).Inc()
			logger.Warn("model call failed", zap.Int("attempt", attempt), zap.Error(err))
			last = err
			continue
		}

		q, err := domquiz.ParseQuestion(raw)
		if err != nil {
			metrics.GenerationAttemptsTotal.WithLabelValues(metrics.OutcomeMalformed).Inc()
			logger.Debug("malformed question discarded", zap.Int("attempt", attempt), zap.Error(err))
			last = err
			continue
		}

		if err := bank.Add(q); err != nil {
			metrics.GenerationAttemptsTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
			logger.Debug("duplicate question discarded", zap.Int("attempt", attempt))
			last = err
			continue
		}

		metrics.GenerationAttemptsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
		metrics.GenerationQuestionsTotal.Inc()
		return true, nil, nil
	}
	return false, last, nil
}
