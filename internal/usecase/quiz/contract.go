package quiz

import (
	"context"

	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
)

// Retriever returns the chunks most relevant to a topic.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]document.Chunk, error)
}

// QuestionModel produces the raw JSON of one question for a prompt.
type QuestionModel interface {
	GenerateQuestion(ctx context.Context, prompt string) (string, error)
}
