package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/challasaiteja/gemini-quizify/internal/config"
	dbRedis "github.com/challasaiteja/gemini-quizify/internal/db/redis"
	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/metrics"
	budgetrepo "github.com/challasaiteja/gemini-quizify/internal/repository/budget"
	"github.com/challasaiteja/gemini-quizify/internal/repository/embcache"
	openaiTransport "github.com/challasaiteja/gemini-quizify/internal/transport/openai"
	budgetuc "github.com/challasaiteja/gemini-quizify/internal/usecase/budget"
	"github.com/challasaiteja/gemini-quizify/internal/usecase/chunker"
	collectionuc "github.com/challasaiteja/gemini-quizify/internal/usecase/collection"
	embeddinguc "github.com/challasaiteja/gemini-quizify/internal/usecase/embedding"
	healthuc "github.com/challasaiteja/gemini-quizify/internal/usecase/health"
	quizuc "github.com/challasaiteja/gemini-quizify/internal/usecase/quiz"
	sessionuc "github.com/challasaiteja/gemini-quizify/internal/usecase/session"
	usageuc "github.com/challasaiteja/gemini-quizify/internal/usecase/usage"
)

const budgetScope = "vertex"

// app is the composition root shared by serve and generate.
type app struct {
	sessions *sessionuc.Service
	health   *healthuc.Service
	usage    *usageuc.Service
	cache    *dbRedis.Store
}

// newApp validates the configuration and wires every component.
// Nothing here calls the model provider.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	if err := domain.ValidateProject(cfg.Google.Project); err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	a := &app{}
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		timeout := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
		a.cache = store
	}

	budget := newBudget(ctx, cfg.Budget, a.cache, logger)
	// A nil *Tracker inside a non-nil interface would be called, so convert explicitly.
	var embBudget embeddinguc.BudgetChecker
	var genBudget openaiTransport.BudgetChecker
	var reader usageuc.BudgetReader
	if budget != nil {
		embBudget = budget
		genBudget = budget
		reader = budget
	}
	a.usage = usageuc.New(reader)

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Project:    cfg.Google.Project,
		Location:   cfg.Google.Location,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout(),
		Logger:     logger,
	})
	embedder := buildEmbedder(base, cfg, a.cache, embBudget, logger)

	docEmbedder, queryEmbedder := embedder, embedder
	if cfg.Embedding.DocumentPrefix != "" {
		docEmbedder = domain.NewTaskPrefixEmbedder(embedder, cfg.Embedding.DocumentPrefix)
	}
	if cfg.Embedding.QueryPrefix != "" {
		queryEmbedder = domain.NewTaskPrefixEmbedder(embedder, cfg.Embedding.QueryPrefix)
	}

	model := openaiTransport.NewQuestionModel(&openaiTransport.GeneratorConfig{
		Config: openaiTransport.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Project:  cfg.Google.Project,
			Location: cfg.Google.Location,
			Model:    cfg.LLM.Model,
			Timeout:  cfg.LLM.Timeout(),
			Logger:   logger,
		},
		Temperature:       cfg.LLM.Temperature,
		MaxOutputTokens:   cfg.LLM.MaxOutputTokens,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
		Budget:            genBudget,
	})

	splitter, err := chunker.New(chunker.Config{
		Strategy: chunker.Strategy(cfg.Chunking.Strategy),
		Size:     cfg.Chunking.Size,
		Overlap:  cfg.Chunking.Overlap,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create chunker: %w", err)
	}

	generator := quizuc.NewGenerator(model, quizuc.Config{
		MaxQuestions: cfg.Quiz.MaxQuestions,
		TopK:         cfg.Quiz.TopK,
		MaxAttempts:  cfg.Quiz.MaxAttempts,
	}, logger)

	a.sessions, err = sessionuc.New(
		cfg.Google.Project,
		splitter,
		collectionuc.NewBuilder(docEmbedder, queryEmbedder),
		generator,
		logger,
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create session service: %w", err)
	}

	var pinger healthuc.Pinger
	if a.cache != nil {
		pinger = a.cache
	}
	a.health = healthuc.New(pinger, base)

	logger.Info("Components wired",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("chunking", cfg.Chunking.Strategy),
		zap.Bool("cache", a.cache != nil),
		zap.Bool("budget", budget != nil),
	)
	return a, nil
}

// Close releases the cache connection.
func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
}

// newBudget returns nil when no limit is configured.
func newBudget(ctx context.Context, cfg config.BudgetConfig, cache *dbRedis.Store, logger *zap.Logger) *budgetuc.Tracker {
	if cfg.DailyTokenLimit <= 0 && cfg.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := budgetuc.ActionWarn
	if cfg.Action == string(budgetuc.ActionReject) {
		action = budgetuc.ActionReject
	}
	tracker := budgetuc.NewTracker(budgetScope, cfg.DailyTokenLimit, cfg.MonthlyTokenLimit, action, logger)
	if cache != nil {
		tracker.WithStore(ctx, budgetrepo.New(cache, 0, 0))
	}
	return tracker
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Retrying -> Instrumented.
func buildEmbedder(
	base domain.Embedder,
	cfg config.Config,
	cache *dbRedis.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cache != nil {
		embedder = embcache.New(base, cache, cfg.Embedding.Model, cfg.Cache.TTL(), metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewRetryingEmbedder(embedder, embeddinguc.RetryPolicy{
		MaxAttempts: cfg.Embedding.MaxAttempts,
		BaseBackoff: time.Duration(cfg.Embedding.BaseBackoffMs) * time.Millisecond,
		MaxBackoff:  time.Duration(cfg.Embedding.MaxBackoffMs) * time.Millisecond,
	}, logger)

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Model, budget, logger)
}
