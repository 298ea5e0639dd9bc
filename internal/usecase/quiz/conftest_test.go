package quiz

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
	domquiz "github.com/challasaiteja/gemini-quizify/internal/domain/quiz"
)

// reply is one scripted model response.
type reply struct {
	raw string
	err error
}

// scriptedModel returns replies in order, then repeats fallback.
type scriptedModel struct {
	mu       sync.Mutex
	replies  []reply
	fallback *reply
	prompts  []string
}

func (m *scriptedModel) GenerateQuestion(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if len(m.replies) == 0 {
		if m.fallback != nil {
			return m.fallback.raw, m.fallback.err
		}
		return "", fmt.Errorf("script exhausted")
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r.raw, r.err
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// uniqueModel returns a new valid question on every call.
type uniqueModel struct {
	mu sync.Mutex
	n  int
}

func (m *uniqueModel) GenerateQuestion(context.Context, string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	return questionJSON(fmt.Sprintf("Question %d about photosynthesis?", m.n)), nil
}

func questionJSON(text string) string {
	return fmt.Sprintf(`{"question":%q,"choices":[{"key":"A","value":"Chloroplast"},{"key":"B","value":"Nucleus"},{"key":"C","value":"Ribosome"}],"answer":"A","explanation":"Photosynthesis happens in chloroplasts."}`, text)
}

type fakeRetriever struct {
	chunks []document.Chunk
	err    error
	topKs  []int
}

func (r *fakeRetriever) Query(_ context.Context, _ string, topK int) ([]document.Chunk, error) {
	r.topKs = append(r.topKs, topK)
	return r.chunks, r.err
}

func sampleQuestions(n int) []domquiz.Question {
	qs := make([]domquiz.Question, n)
	for i := range qs {
		qs[i] = domquiz.Question{
			Question:    fmt.Sprintf("Q%d", i),
			Choices:     []domquiz.Choice{{Key: "A", Value: "yes"}, {Key: "B", Value: "no"}},
			Answer:      "A",
			Explanation: strings.Repeat("because ", i+1),
		}
	}
	return qs
}
