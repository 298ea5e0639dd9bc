package chi

import (
	"context"

	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
	domquiz "github.com/challasaiteja/gemini-quizify/internal/domain/quiz"
	domusage "github.com/challasaiteja/gemini-quizify/internal/domain/usage"
	healthuc "github.com/challasaiteja/gemini-quizify/internal/usecase/health"
	quizuc "github.com/challasaiteja/gemini-quizify/internal/usecase/quiz"
	sessionuc "github.com/challasaiteja/gemini-quizify/internal/usecase/session"
)

// Sessions is the quiz session host used by the HTTP handlers.
type Sessions interface {
	Create() sessionuc.Info
	Delete(id string) error
	Ingest(ctx context.Context, id string, docs []document.Document) (int, error)
	BuildCollection(ctx context.Context, id string) (int, error)
	GenerateQuiz(ctx context.Context, id, topic string, n int) (sessionuc.GenerateResult, error)
	GetQuestionAtIndex(id string, i int) (domquiz.Question, error)
	NextQuestionIndex(id string, direction int) (int, error)
	CurrentQuestion(id string) (domquiz.Question, int, error)
	CheckAnswer(id string, i int, key string) (quizuc.AnswerResult, error)
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports token consumption against the budget.
type UsageReporter interface {
	Report(ctx context.Context, period domusage.Period) domusage.Report
}
