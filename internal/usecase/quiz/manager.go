package quiz

import (
	"errors"
	"fmt"
	"sync"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	domquiz "github.com/challasaiteja/gemini-quizify/internal/domain/quiz"
)

// ErrInvalidDirection signals a navigation step other than +1 or -1.
var ErrInvalidDirection = errors.New("direction must be 1 or -1")

// AnswerResult is the outcome of checking a learner's answer.
type AnswerResult struct {
	Correct      bool
	CorrectKey   string
	CorrectValue string
	Explanation  string
}

// Manager serves a frozen question bank through a cyclic cursor.
type Manager struct {
	mu        sync.Mutex
	questions []domquiz.Question
	cursor    int
}

// NewManager takes ownership of a copy of questions. The cursor starts at 0.
func NewManager(questions []domquiz.Question) *Manager {
	qs := make([]domquiz.Question, len(questions))
	copy(qs, questions)
	return &Manager{questions: qs}
}

// Len returns the number of questions.
func (m *Manager) Len() int { return len(m.questions) }

// Cursor returns the current position.
func (m *Manager) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// GetQuestionAtIndex returns the question at i modulo the bank size;
// negative indices wrap from the end. The cursor does not move.
func (m *Manager) GetQuestionAtIndex(i int) (domquiz.Question, error) {
	if len(m.questions) == 0 {
		return domquiz.Question{}, domain.ErrEmptyBank
	}
	return m.questions[wrap(i, len(m.questions))], nil
}

// Current returns the question under the cursor.
func (m *Manager) Current() (domquiz.Question, error) {
	return m.GetQuestionAtIndex(m.Cursor())
}

// NextQuestionIndex moves the cursor one step in direction and returns the new position.
func (m *Manager) NextQuestionIndex(direction int) (int, error) {
	if direction != 1 && direction != -1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidDirection, direction)
	}
	if len(m.questions) == 0 {
		return 0, domain.ErrEmptyBank
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = wrap(m.cursor+direction, len(m.questions))
	return m.cursor, nil
}

// CheckAnswer compares key with the answer of the question at i.
// Keys match case-insensitively, ignoring surrounding space and a trailing ")"
// so that labels such as "A) Thylakoids" are accepted by their prefix.
func (m *Manager) CheckAnswer(i int, key string) (AnswerResult, error) {
	q, err := m.GetQuestionAtIndex(i)
	if err != nil {
		return AnswerResult{}, err
	}
	correct, _ := q.ChoiceByKey(q.Answer)
	return AnswerResult{
		Correct:      domquiz.NormalizeKey(key) == domquiz.NormalizeKey(q.Answer),
		CorrectKey:   q.Answer,
		CorrectValue: correct.Value,
		Explanation:  q.Explanation,
	}, nil
}

// wrap is the Euclidean remainder of i by n.
func wrap(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
