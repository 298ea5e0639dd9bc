package quiz

import "fmt"

// Bank is an ordered question collection, unique by exact question text.
// It grows during generation and is treated as frozen once handed to a Manager.
type Bank struct {
	questions []Question
	seen      map[string]struct{}
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{seen: make(map[string]struct{})}
}

// Add validates q and appends it. An exact repeat of an existing question
// text returns ErrDuplicateQuestion.
func (b *Bank) Add(q Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if b.Contains(q.Question) {
		return fmt.Errorf("%w: %q", ErrDuplicateQuestion, q.Question)
	}
	b.questions = append(b.questions, q)
	b.seen[q.Question] = struct{}{}
	return nil
}

// Contains reports whether a question with exactly this text exists (case-sensitive).
func (b *Bank) Contains(text string) bool {
	_, ok := b.seen[text]
	return ok
}

// Len returns the number of questions.
func (b *Bank) Len() int { return len(b.questions) }

// Questions returns a copy of the questions in insertion order.
func (b *Bank) Questions() []Question {
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// Texts returns the question texts in insertion order.
func (b *Bank) Texts() []string {
	out := make([]string, len(b.questions))
	for i, q := range b.questions {
		out[i] = q.Question
	}
	return out
}
