// Package quiz holds the multiple-choice question model and the question bank.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// MinChoices is the minimum number of choices per question.
	MinChoices = 2
	// MaxChoices is the maximum number of choices per question.
	MaxChoices = 4
)

var (
	// ErrMalformedQuestion signals model output that does not match the question schema.
	ErrMalformedQuestion = errors.New("malformed question")
	// ErrDuplicateQuestion signals a question text already present in the bank.
	ErrDuplicateQuestion = errors.New("duplicate question")
)

// Choice is one labeled option.
type Choice struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Question is a single-correct-answer multiple-choice question.
type Question struct {
	Question    string   `json:"question"`
	Choices     []Choice `json:"choices"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// Validate enforces the question invariants: non-empty text, 2..4 choices
// with non-empty keys that stay unique under NormalizeKey, and an answer
// equal to exactly one key.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: question text is empty", ErrMalformedQuestion)
	}
	if len(q.Choices) < MinChoices || len(q.Choices) > MaxChoices {
		return fmt.Errorf("%w: expected %d-%d choices, got %d",
			ErrMalformedQuestion, MinChoices, MaxChoices, len(q.Choices))
	}
	keys := make(map[string]bool, len(q.Choices))
	folded := make(map[string]string, len(q.Choices))
	for i, c := range q.Choices {
		norm := NormalizeKey(c.Key)
		if norm == "" {
			return fmt.Errorf("%w: choice %d has an empty key", ErrMalformedQuestion, i)
		}
		if strings.TrimSpace(c.Value) == "" {
			return fmt.Errorf("%w: choice %q has an empty value", ErrMalformedQuestion, c.Key)
		}
		if prev, ok := folded[norm]; ok {
			return fmt.Errorf("%w: choice keys %q and %q are indistinguishable", ErrMalformedQuestion, prev, c.Key)
		}
		folded[norm] = c.Key
		keys[c.Key] = true
	}
	if !keys[q.Answer] {
		return fmt.Errorf("%w: answer %q is not one of the choice keys", ErrMalformedQuestion, q.Answer)
	}
	return nil
}

// NormalizeKey folds a choice label for comparison: surrounding space and
// anything from the first ")" on are dropped, and case is ignored, so
// "A) Thylakoids" and " a" both become "a".
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if i := strings.IndexByte(key, ')'); i >= 0 {
		key = key[:i]
	}
	return strings.ToLower(strings.TrimSpace(key))
}

// ChoiceByKey returns the choice labeled key.
func (q Question) ChoiceByKey(key string) (Choice, bool) {
	for _, c := range q.Choices {
		if c.Key == key {
			return c, true
		}
	}
	return Choice{}, false
}

// rawQuestion mirrors Question with pointers so that missing fields can be told apart from empty ones.
type rawQuestion struct {
	Question    *string  `json:"question"`
	Choices     []Choice `json:"choices"`
	Answer      *string  `json:"answer"`
	Explanation *string  `json:"explanation"`
}

// ParseQuestion decodes one question from model output and validates it.
// Markdown code fences around the JSON are tolerated; unknown fields are ignored.
func ParseQuestion(raw string) (Question, error) {
	payload := stripCodeFence(raw)
	if payload == "" {
		return Question{}, fmt.Errorf("%w: empty response", ErrMalformedQuestion)
	}

	var rq rawQuestion
	if err := json.Unmarshal([]byte(payload), &rq); err != nil {
		return Question{}, fmt.Errorf("%w: %v", ErrMalformedQuestion, err) //nolint:errorlint // keep sentinel as the wrapped error
	}

	switch {
	case rq.Question == nil:
		return Question{}, fmt.Errorf("%w: missing field \"question\"", ErrMalformedQuestion)
	case rq.Choices == nil:
		return Question{}, fmt.Errorf("%w: missing field \"choices\"", ErrMalformedQuestion)
	case rq.Answer == nil:
		return Question{}, fmt.Errorf("%w: missing field \"answer\"", ErrMalformedQuestion)
	case rq.Explanation == nil:
		return Question{}, fmt.Errorf("%w: missing field \"explanation\"", ErrMalformedQuestion)
	}

	q := Question{
		Question:    strings.TrimSpace(*rq.Question),
		Choices:     make([]Choice, len(rq.Choices)),
		Answer:      strings.TrimSpace(*rq.Answer),
		Explanation: strings.TrimSpace(*rq.Explanation),
	}
	for i, c := range rq.Choices {
		q.Choices[i] = Choice{Key: strings.TrimSpace(c.Key), Value: strings.TrimSpace(c.Value)}
	}

	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the info string ("json") up to the first newline
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
