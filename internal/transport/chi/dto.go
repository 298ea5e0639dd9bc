package chi

import (
	"fmt"
	"time"

	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
	domquiz "github.com/challasaiteja/gemini-quizify/internal/domain/quiz"
	domusage "github.com/challasaiteja/gemini-quizify/internal/domain/usage"
	sessionuc "github.com/challasaiteja/gemini-quizify/internal/usecase/session"
)

type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeInvalidTopic      errorCode = "invalid_topic"
	codeInvalidCount      errorCode = "invalid_count"
	codeInvalidDirection  errorCode = "invalid_direction"
	codeEmptyInput        errorCode = "empty_input"
	codeUnsupportedFormat errorCode = "unsupported_format"
	codeSessionNotFound   errorCode = "session_not_found"
	codeEmptyBank         errorCode = "empty_bank"
	codeAlreadyGenerated  errorCode = "quiz_already_generated"
	codeQuotaExceeded     errorCode = "quota_exceeded"
	codeEmbeddingService  errorCode = "embedding_service_error"
	codeGenerationFailed  errorCode = "generation_failed"
	codeConfiguration     errorCode = "configuration_error"
	codeInternal          errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type documentItem struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

type ingestRequest struct {
	Documents []documentItem `json:"documents"`
}

type ingestResponse struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

type collectionResponse struct {
	Size int `json:"size"`
}

type generateRequest struct {
	Topic        string `json:"topic"`
	NumQuestions int    `json:"num_questions"`
}

type choiceView struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// questionView hides the answer and explanation until the question is answered.
type questionView struct {
	Index    *int         `json:"index,omitempty"`
	Question string       `json:"question"`
	Choices  []choiceView `json:"choices"`
}

type generateResponse struct {
	Questions []questionView `json:"questions"`
	Requested int            `json:"requested"`
	Produced  int            `json:"produced"`
	Complete  bool           `json:"complete"`
	Stopped   *errorResponse `json:"stopped,omitempty"`
}

type navigateResponse struct {
	Index int `json:"index"`
}

type answerRequest struct {
	Key string `json:"key"`
}

type answerResponse struct {
	Correct     bool   `json:"correct"`
	Answer      string `json:"answer"`
	AnswerText  string `json:"answer_text"`
	Explanation string `json:"explanation"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type usageResponse struct {
	Period          string    `json:"period"`
	PeriodStartAt   time.Time `json:"period_start_at"`
	PeriodEndAt     time.Time `json:"period_end_at"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensLimit     int64     `json:"tokens_limit"`
	TokensRemaining int64     `json:"tokens_remaining"`
	IsExhausted     bool      `json:"is_exhausted"`
}

func usageToDTO(r domusage.Report) usageResponse {
	return usageResponse{
		Period:          string(r.Period),
		PeriodStartAt:   r.Start,
		PeriodEndAt:     r.End,
		TokensUsed:      r.TokensUsed,
		TokensLimit:     r.TokensLimit,
		TokensRemaining: r.TokensRemaining,
		IsExhausted:     r.Exhausted(),
	}
}

func sessionToDTO(info sessionuc.Info) sessionResponse {
	return sessionResponse{ID: info.ID, CreatedAt: info.CreatedAt.UTC()}
}

func questionToDTO(q domquiz.Question, index *int) questionView {
	choices := make([]choiceView, len(q.Choices))
	for i, c := range q.Choices {
		choices[i] = choiceView{Key: c.Key, Value: c.Value}
	}
	return questionView{Index: index, Question: q.Question, Choices: choices}
}

func generateToDTO(res sessionuc.GenerateResult) generateResponse {
	questions := make([]questionView, len(res.Questions))
	for i, q := range res.Questions {
		idx := i
		questions[i] = questionToDTO(q, &idx)
	}
	return generateResponse{
		Questions: questions,
		Requested: res.Requested,
		Produced:  res.Produced,
		Complete:  res.Complete,
	}
}

func documentsFromDTO(items []documentItem) ([]document.Document, error) {
	docs := make([]document.Document, 0, len(items))
	for i, item := range items {
		d, err := document.New(item.Text, item.Source, item.Page)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}
