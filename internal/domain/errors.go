package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput signals that there is nothing to chunk.
	ErrEmptyInput = errors.New("empty input")
	// ErrEmbeddingService signals that the embedding service could not produce vectors.
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrEmptyCollection signals a query against a collection with no entries.
	ErrEmptyCollection = errors.New("empty collection")
	// ErrGeneration signals a question slot that exhausted its attempts.
	ErrGeneration = errors.New("generation failed")
	// ErrIncompleteGeneration signals a question bank smaller than requested.
	ErrIncompleteGeneration = errors.New("incomplete generation")
	// ErrInvalidTopic signals an empty or whitespace-only topic.
	ErrInvalidTopic = errors.New("invalid topic")
	// ErrInvalidCount signals a question count outside the allowed range.
	ErrInvalidCount = errors.New("invalid question count")
	// ErrConfiguration signals missing or invalid configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmptyBank signals navigation before any question exists.
	ErrEmptyBank = errors.New("empty question bank")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrQuotaExceeded signals an exhausted token budget.
	ErrQuotaExceeded = errors.New("token quota exceeded")
	// ErrModelProvider signals a language-model provider failure.
	ErrModelProvider = errors.New("model provider error")
)

// EmbeddingServiceError is returned once embedding retries are exhausted
// or a non-retryable provider failure occurs.
type EmbeddingServiceError struct {
	Attempts int
	Err      error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrEmbeddingService.Error(), e.Attempts, e.Err)
}

// Unwrap exposes both the sentinel and the last provider error.
func (e *EmbeddingServiceError) Unwrap() []error { return []error{ErrEmbeddingService, e.Err} }

// GenerationError reports a single question slot that ran out of attempts.
type GenerationError struct {
	Slot     int
	Attempts int
	Last     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: slot %d after %d attempt(s): %v", ErrGeneration.Error(), e.Slot, e.Attempts, e.Last)
}

func (e *GenerationError) Unwrap() error { return ErrGeneration }

// IncompleteGenerationError carries the number of questions actually produced.
// The partial bank returned alongside it is still usable.
type IncompleteGenerationError struct {
	Requested int
	Produced  int
	Failures  []error
}

func (e *IncompleteGenerationError) Error() string {
	msg := fmt.Sprintf("%s: produced %d of %d question(s)", ErrIncompleteGeneration.Error(), e.Produced, e.Requested)
	if len(e.Failures) == 0 {
		return msg
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return msg + ": " + strings.Join(parts, "; ")
}

func (e *IncompleteGenerationError) Unwrap() error { return ErrIncompleteGeneration }

// InvalidCountError wraps ErrInvalidCount with the offending value and the allowed maximum.
type InvalidCountError struct {
	N   int
	Max int
}

func (e *InvalidCountError) Error() string {
	return fmt.Sprintf("%s: %d (must be between 1 and %d)", ErrInvalidCount.Error(), e.N, e.Max)
}

func (e *InvalidCountError) Unwrap() error { return ErrInvalidCount }
