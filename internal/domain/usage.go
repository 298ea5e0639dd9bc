package domain

import (
	"context"
	"sync"
)

type tokenUsageKey struct{}

// TokenUsage collects provider token usage for a single request.
// Callers put it into the context and the provider decorators add to it.
type TokenUsage struct {
	mu               sync.Mutex
	embeddingTokens  int
	generationTokens int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *TokenUsage) {
	u := &TokenUsage{}
	return context.WithValue(ctx, tokenUsageKey{}, u), u
}

// UsageFromContext returns the collector stored in ctx, or nil.
func UsageFromContext(ctx context.Context) *TokenUsage {
	u, _ := ctx.Value(tokenUsageKey{}).(*TokenUsage)
	return u
}

// AddEmbedding records embedding tokens. Safe on a nil receiver.
func (u *TokenUsage) AddEmbedding(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.mu.Unlock()
}

// AddGeneration records language-model tokens. Safe on a nil receiver.
func (u *TokenUsage) AddGeneration(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.generationTokens += n
	u.mu.Unlock()
}

// EmbeddingTokens returns the embedding total.
func (u *TokenUsage) EmbeddingTokens() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embeddingTokens
}

// GenerationTokens returns the language-model total.
func (u *TokenUsage) GenerationTokens() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.generationTokens
}
