package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Attempt outcomes.
const (
	OutcomeAccepted   = "accepted"
	OutcomeMalformed  = "malformed"
	OutcomeDuplicate  = "duplicate"
	OutcomeModelError = "model_error"
)

// Question generation Prometheus metrics.
var (
	GenerationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Question generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	GenerationQuestionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_questions_total",
			Help:      "Questions accepted into a bank",
		},
	)

	GenerationRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_run_duration_seconds",
			Help:      "Duration of a full quiz generation run",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"complete"},
	)

	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Language model requests",
		},
		[]string{"model", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Language model request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"model"},
	)

	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_tokens_total",
			Help:      "Language model tokens consumed",
		},
		[]string{"model", "type"}, // "prompt" / "completion"
	)
)

var genOnce sync.Once

// RegisterGenerationMetrics registers the generation and model collectors. Call from main.
func RegisterGenerationMetrics() {
	genOnce.Do(func() {
		prometheus.MustRegister(
			GenerationAttemptsTotal,
			GenerationQuestionsTotal,
			GenerationRunDuration,
			ModelRequestsTotal,
			ModelRequestDuration,
			ModelTokensTotal,
		)
	})
}
