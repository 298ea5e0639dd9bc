package collection

import (
	"context"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Store holds chunk vectors and answers nearest-neighbour queries.
type Store interface {
	Add(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error
	Query(ctx context.Context, vec []float32, k int) ([]document.Chunk, error)
	Len() int
	Dimension() int
}

// StoreFactory creates an empty Store.
type StoreFactory func(name string) (Store, error)
