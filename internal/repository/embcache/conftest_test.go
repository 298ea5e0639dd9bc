package embcache

import (
	"context"
	"time"

	"github.com/challasaiteja/gemini-quizify/internal/db"
	"github.com/challasaiteja/gemini-quizify/internal/domain"
)

// textEmbedder returns a one-dimensional vector equal to the text length.
type textEmbedder struct {
	tokens     int
	err        error
	calls      int
	batchCalls int
	batches    [][]string
}

func (m *textEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: m.tokens}, nil
}

func (m *textEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	embeddings := make([][]float32, len(texts))
	for i, t := range texts {
		embeddings[i] = []float32{float32(len(t))}
	}
	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		TotalTokens: m.tokens * len(texts),
	}, nil
}

// memStore is an in-memory store with error injection.
type memStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
	sets    int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *memStore) SetMulti(_ context.Context, items []db.KVItem, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.lastTTL = ttl
	for _, it := range items {
		m.data[it.Key] = it.Value
		m.sets++
	}
	return nil
}
