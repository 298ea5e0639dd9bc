// Package collection builds transient vector collections over document chunks
// and answers top-k similarity queries against them.
package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
	"github.com/challasaiteja/gemini-quizify/internal/repository/vector"
)

// ErrInvalidTopK is returned for a non-positive top-k.
var ErrInvalidTopK = errors.New("top_k must be positive")

// Builder embeds chunks and loads them into a fresh Store.
type Builder struct {
	documents Embedder
	queries   Embedder
	newStore  StoreFactory
}

// NewBuilder creates a Builder. documents embeds chunk text, queries embeds
// query text; pass the same embedder twice when the model has no task prefixes.
func NewBuilder(documents, queries Embedder) *Builder {
	return &Builder{
		documents: documents,
		queries:   queries,
		newStore: func(name string) (Store, error) {
			return vector.New(name)
		},
	}
}

// WithStoreFactory replaces the chromem-backed store.
func (b *Builder) WithStoreFactory(f StoreFactory) *Builder {
	b.newStore = f
	return b
}

// Build embeds every chunk with one batched call and returns the collection.
// Zero chunks give an empty, valid collection.
func (b *Builder) Build(ctx context.Context, chunks []document.Chunk) (*Collection, error) {
	store, err := b.newStore("chunks-" + uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	col := &Collection{store: store, embed: b.queries}
	if len(chunks) == 0 {
		return col, nil
	}

	res, err := domain.BatchEmbed(ctx, b.documents, document.Texts(chunks))
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(res.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks",
			domain.ErrEmbeddingService, len(res.Embeddings), len(chunks))
	}

	if err := store.Add(ctx, chunks, res.Embeddings); err != nil {
		return nil, fmt.Errorf("store vectors: %w", err)
	}
	return col, nil
}

// Collection is a read-only view over a built Store.
type Collection struct {
	store Store
	embed Embedder
}

// Len returns the number of chunks.
func (c *Collection) Len() int { return c.store.Len() }

// Dimension returns the vector dimension, or 0 for an empty collection.
func (c *Collection) Dimension() int { return c.store.Dimension() }

// Query embeds text and returns the topK most similar chunks, most similar first.
// topK is clamped to the collection size.
func (c *Collection) Query(ctx context.Context, text string, topK int) ([]document.Chunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	if c.store.Len() == 0 {
		return nil, domain.ErrEmptyCollection
	}

	res, err := c.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := c.store.Query(ctx, res.Embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}
	return chunks, nil
}
