package domain

import (
	"fmt"
	"net/http"
)

// ProviderError is a failed call to a remote model provider.
// StatusCode is zero when the request never got an HTTP response.
type ProviderError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Unwrap exposes ErrModelProvider and the client error.
func (e *ProviderError) Unwrap() []error { return []error{ErrModelProvider, e.Err} }

// Retryable reports whether the call may succeed if repeated:
// transport failures, rate limiting and server errors.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}
