package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/ingest"
	logpkg "github.com/challasaiteja/gemini-quizify/internal/logger"
	quizuc "github.com/challasaiteja/gemini-quizify/internal/usecase/quiz"
	sessionuc "github.com/challasaiteja/gemini-quizify/internal/usecase/session"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Order matters: quota exhaustion surfaces through the embedding and
// generation paths, so it is matched before them.
func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(sessionuc.ErrSessionNotFound, http.StatusNotFound, codeSessionNotFound),
		sentinelHandler(domain.ErrInvalidTopic, http.StatusBadRequest, codeInvalidTopic),
		invalidCountHandler,
		sentinelHandler(quizuc.ErrInvalidDirection, http.StatusBadRequest, codeInvalidDirection),
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, codeEmptyInput),
		sentinelHandler(ingest.ErrUnsupportedFormat, http.StatusBadRequest, codeUnsupportedFormat),
		sentinelHandler(domain.ErrEmptyBank, http.StatusConflict, codeEmptyBank),
		sentinelHandler(sessionuc.ErrQuizAlreadyGenerated, http.StatusConflict, codeAlreadyGenerated),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusPaymentRequired, codeQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingService, http.StatusBadGateway, codeEmbeddingService),
		sentinelHandler(domain.ErrIncompleteGeneration, http.StatusBadGateway, codeGenerationFailed),
		sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, codeGenerationFailed),
		sentinelHandler(domain.ErrModelProvider, http.StatusBadGateway, codeGenerationFailed),
		sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError, codeConfiguration),
	}
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		sessionuc.ErrSessionNotFound,
		sessionuc.ErrQuizAlreadyGenerated,
		domain.ErrInvalidTopic,
		quizuc.ErrInvalidDirection,
		domain.ErrEmptyInput,
		ingest.ErrUnsupportedFormat,
		domain.ErrEmptyBank,
		domain.ErrQuotaExceeded,
		domain.ErrEmbeddingService,
		domain.ErrIncompleteGeneration,
		domain.ErrGeneration,
		domain.ErrModelProvider,
		domain.ErrConfiguration,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

// invalidCountHandler reports the allowed range, which the client needs to retry.
func invalidCountHandler(w http.ResponseWriter, err error) bool {
	var ice *domain.InvalidCountError
	if !errors.As(err, &ice) {
		if errors.Is(err, domain.ErrInvalidCount) {
			writeError(w, http.StatusBadRequest, codeInvalidCount, domain.ErrInvalidCount.Error())
			return true
		}
		return false
	}
	writeError(w, http.StatusBadRequest, codeInvalidCount, ice.Error())
	return true
}

// stoppedReason describes why a run that still produced questions ended early.
func stoppedReason(err error) *errorResponse {
	code := codeInternal
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		code = codeQuotaExceeded
	case errors.Is(err, domain.ErrEmbeddingService):
		code = codeEmbeddingService
	case errors.Is(err, domain.ErrIncompleteGeneration),
		errors.Is(err, domain.ErrGeneration),
		errors.Is(err, domain.ErrModelProvider):
		code = codeGenerationFailed
	}
	return &errorResponse{Code: code, Message: safeDomainMessage(err)}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
