package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/metrics"
)

// Generation defaults.
const (
	DefaultTemperature     = 0.8
	DefaultMaxOutputTokens = 500

	submitQuestionTool = "submit_question"
	systemPrompt       = "You write multiple-choice quiz questions grounded in the supplied context. " +
		"Submit exactly one question by calling " + submitQuestionTool + "."
)

var errEmptyCompletion = errors.New("completion has neither a tool call nor content")

// BudgetChecker enforces the shared token budget.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// GeneratorConfig holds the chat-completion settings of QuestionModel.
type GeneratorConfig struct {
	Config

	Temperature       float32
	MaxOutputTokens   int
	RequestsPerSecond float64
	Burst             int
	Budget            BudgetChecker
}

// QuestionModel asks a chat model for one question per call through a forced
// tool call whose arguments follow the question schema.
type QuestionModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	limiter     *rate.Limiter
	budget      BudgetChecker
	logger      *zap.Logger
}

// NewQuestionModel creates a QuestionModel. Zero RequestsPerSecond disables throttling.
func NewQuestionModel(cfg *GeneratorConfig) *QuestionModel {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &QuestionModel{
		client:      newClient(cfg.APIKey, BaseURL(cfg.BaseURL, cfg.Project, cfg.Location), cfg.Timeout),
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
		limiter:     rate.NewLimiter(limit, burst),
		budget:      cfg.Budget,
		logger:      logger,
	}
}

// GenerateQuestion sends prompt and returns the raw question JSON.
// Plain message content is returned when the provider ignores the tool.
func (m *QuestionModel) GenerateQuestion(ctx context.Context, prompt string) (string, error) {
	if m.budget != nil {
		if err := m.budget.Check(ctx); err != nil {
			return "", fmt.Errorf("generate question: %w", err)
		}
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("generate question: rate limit wait: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		Tools:       []openai.Tool{questionTool},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: submitQuestionTool},
		},
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, req)
	metrics.ModelRequestDuration.WithLabelValues(m.model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(m.model, "error").Inc()
		return "", parseAPIError("chat completion", err)
	}
	metrics.ModelRequestsTotal.WithLabelValues(m.model, "success").Inc()
	m.record(ctx, resp.Usage)

	if len(resp.Choices) == 0 {
		return "", &domain.ProviderError{Op: "chat completion", Message: "no choices", Err: errEmptyCompletion}
	}
	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Name == submitQuestionTool {
			return call.Function.Arguments, nil
		}
	}
	if content := strings.TrimSpace(msg.Content); content != "" {
		m.logger.Debug("model answered without the tool call", zap.String("model", m.model))
		return content, nil
	}
	return "", &domain.ProviderError{
		Op:      "chat completion",
		Message: string(resp.Choices[0].FinishReason),
		Err:     errEmptyCompletion,
	}
}

func (m *QuestionModel) record(ctx context.Context, usage openai.Usage) {
	if usage.PromptTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(m.model, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(m.model, "completion").Add(float64(usage.CompletionTokens))
	}
	domain.UsageFromContext(ctx).AddGeneration(usage.TotalTokens)
	if m.budget != nil {
		m.budget.Record(int64(usage.TotalTokens))
	}
}

var questionTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        submitQuestionTool,
		Description: "Submit one multiple-choice question with a single correct answer.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"question": {Type: jsonschema.String, Description: "The question text."},
				"choices": {
					Type:        jsonschema.Array,
					Description: "Between 2 and 4 options keyed A, B, C, D in order.",
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"key":   {Type: jsonschema.String},
							"value": {Type: jsonschema.String},
						},
						Required: []string{"key", "value"},
					},
				},
				"answer":      {Type: jsonschema.String, Description: "The key of the correct choice."},
				"explanation": {Type: jsonschema.String, Description: "Why the answer is correct."},
			},
			Required: []string{"question", "choices", "answer", "explanation"},
		},
	},
}
