// Package openai talks to OpenAI-compatible model endpoints, including the
// Vertex AI OpenAI-compatible surface, for embeddings and question generation.
package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
)

const vertexBaseURL = "https://%[1]s-aiplatform.googleapis.com/v1beta1/projects/%[2]s/locations/%[1]s/endpoints/openapi"

// BaseURL returns explicit when set, otherwise the Vertex AI endpoint for project and location.
func BaseURL(explicit, project, location string) string {
	if explicit != "" {
		return explicit
	}
	return fmt.Sprintf(vertexBaseURL, location, project)
}

func newClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return openai.NewClientWithConfig(cfg)
}

// parseAPIError turns a go-openai failure into a *domain.ProviderError.
// Requests that never got a response keep StatusCode 0 and stay retryable.
func parseAPIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			Op:         op,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := extractDetail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		return &domain.ProviderError{
			Op:         op,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    msg,
			Err:        err,
		}
	}

	return &domain.ProviderError{Op: op, Err: err}
}

// extractDetail reads the "detail" field some gateways put in error bodies.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
