package session

import (
	"context"

	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
	domquiz "github.com/challasaiteja/gemini-quizify/internal/domain/quiz"
	"github.com/challasaiteja/gemini-quizify/internal/usecase/collection"
	"github.com/challasaiteja/gemini-quizify/internal/usecase/quiz"
)

// Chunker splits documents into chunks.
type Chunker interface {
	Chunk(docs []document.Document) ([]document.Chunk, error)
}

// CollectionBuilder embeds chunks into a queryable collection.
type CollectionBuilder interface {
	Build(ctx context.Context, chunks []document.Chunk) (*collection.Collection, error)
}

// QuizGenerator produces question banks.
type QuizGenerator interface {
	Validate(topic string, n int) error
	Generate(ctx context.Context, topic string, n int, retriever quiz.Retriever) (*domquiz.Bank, error)
}
