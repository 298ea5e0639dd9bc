package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
	domusage "github.com/challasaiteja/gemini-quizify/internal/domain/usage"
	"github.com/challasaiteja/gemini-quizify/internal/ingest"
	logpkg "github.com/challasaiteja/gemini-quizify/internal/logger"
	healthuc "github.com/challasaiteja/gemini-quizify/internal/usecase/health"
)

const (
	maxUploadSize   = 4 * ingest.MaxFileSize
	maxJSONBodySize = 8 << 20
	multipartMemory = 8 << 20
)

// Server serves the quiz session API.
type Server struct {
	sessions      Sessions
	health        HealthChecker
	usage         UsageReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(sessions Sessions, health HealthChecker, usage UsageReporter, logger *zap.Logger) *Server {
	return &Server{
		sessions:      sessions,
		health:        health,
		usage:         usage,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/usage", s.GetUsage)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Route("/{sessionId}", func(r chi.Router) {
			r.Delete("/", s.DeleteSession)
			r.Post("/documents", s.IngestDocuments)
			r.Post("/collection", s.BuildCollection)
			r.Post("/quiz", s.GenerateQuiz)
			r.Post("/navigate", s.Navigate)
			r.Get("/questions/current", s.CurrentQuestion)
			r.Get("/questions/{index}", s.GetQuestion)
			r.Post("/questions/{index}/answer", s.AnswerQuestion)
		})
	})
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	info := s.sessions.Create()
	logpkg.FromContext(r.Context()).Info("session created", zap.String("session_id", info.ID))
	writeJSON(w, http.StatusCreated, sessionToDTO(info))
}

// DeleteSession handles DELETE /sessions/{sessionId}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Delete(id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IngestDocuments handles POST /sessions/{sessionId}/documents.
// The body is either multipart files or a JSON list of page texts.
func (s *Server) IngestDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var (
		docs []document.Document
		err  error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		docs, err = readUploads(w, r)
	} else {
		docs, err = readJSONDocuments(w, r)
	}
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFormat) || errors.Is(err, domain.ErrEmptyInput) {
			s.handleDomainError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid documents: "+err.Error())
		return
	}

	chunks, err := s.sessions.Ingest(r.Context(), id, docs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Documents: len(docs), Chunks: chunks})
}

// BuildCollection handles POST /sessions/{sessionId}/collection.
func (s *Server) BuildCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	ctx, usage := domain.NewContextWithUsage(r.Context())
	size, err := s.sessions.BuildCollection(ctx, id)
	setTokenHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionResponse{Size: size})
}

// GenerateQuiz handles POST /sessions/{sessionId}/quiz.
// A partial bank is still a success with complete=false and the reason the run
// stopped, whether it ran out of attempts or was cut short by quota or a provider.
func (s *Server) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.sessions.GenerateQuiz(ctx, id, req.Topic, req.NumQuestions)
	setTokenHeaders(w, usage)
	if err != nil && res.Produced == 0 {
		s.handleDomainError(w, r, err)
		return
	}
	body := generateToDTO(res)
	if err != nil {
		logpkg.FromContext(r.Context()).Warn("partial quiz returned",
			zap.String("session_id", id),
			zap.Int("produced", res.Produced),
			zap.Int("requested", res.Requested),
			zap.Error(err),
		)
		body.Stopped = stoppedReason(err)
	}
	writeJSON(w, http.StatusOK, body)
}

// Navigate handles POST /sessions/{sessionId}/navigate?direction=next|prev.
func (s *Server) Navigate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var direction string
	if err := runtime.BindQueryParameter("form", true, true, "direction", r.URL.Query(), &direction); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidDirection, "direction must be \"next\" or \"prev\"")
		return
	}
	var step int
	switch direction {
	case "next":
		step = 1
	case "prev":
		step = -1
	default:
		writeError(w, http.StatusBadRequest, codeInvalidDirection, "direction must be \"next\" or \"prev\"")
		return
	}

	idx, err := s.sessions.NextQuestionIndex(id, step)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, navigateResponse{Index: idx})
}

// GetQuestion handles GET /sessions/{sessionId}/questions/{index}.
// The index wraps around the bank in both directions.
func (s *Server) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	index, ok := s.questionIndex(w, r)
	if !ok {
		return
	}
	q, err := s.sessions.GetQuestionAtIndex(id, index)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questionToDTO(q, nil))
}

// CurrentQuestion handles GET /sessions/{sessionId}/questions/current.
func (s *Server) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	q, idx, err := s.sessions.CurrentQuestion(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questionToDTO(q, &idx))
}

// AnswerQuestion handles POST /sessions/{sessionId}/questions/{index}/answer.
func (s *Server) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	index, ok := s.questionIndex(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "key is required")
		return
	}

	res, err := s.sessions.CheckAnswer(id, index, req.Key)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{
		Correct:     res.Correct,
		Answer:      res.CorrectKey,
		AnswerText:  res.CorrectValue,
		Explanation: res.Explanation,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// GetUsage handles GET /usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid format for parameter period: "+err.Error())
		return
	}
	period, err := domusage.ParsePeriod(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "period must be \"day\" or \"month\"")
		return
	}
	writeJSON(w, http.StatusOK, usageToDTO(s.usage.Report(r.Context(), period)))
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "sessionId", chi.URLParam(r, "sessionId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("Invalid format for parameter sessionId: %s", err))
		return "", false
	}
	return id, true
}

func (s *Server) questionIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	var index int
	err := runtime.BindStyledParameterWithOptions("simple", "index", chi.URLParam(r, "index"), &index,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("Invalid format for parameter index: %s", err))
		return 0, false
	}
	return index, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func readJSONDocuments(w http.ResponseWriter, r *http.Request) ([]document.Document, error) {
	var req ingestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if len(req.Documents) == 0 {
		return nil, fmt.Errorf("%w: no documents", domain.ErrEmptyInput)
	}
	return documentsFromDTO(req.Documents)
}

func readUploads(w http.ResponseWriter, r *http.Request) ([]document.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	files = append(files, r.MultipartForm.File["files[]"]...)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", domain.ErrEmptyInput)
	}

	var docs []document.Document
	for _, fh := range files {
		pages, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		docs = append(docs, pages...)
	}
	return docs, nil
}

func readUpload(fh *multipart.FileHeader) ([]document.Document, error) {
	if fh.Size > ingest.MaxFileSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", fh.Filename, ingest.MaxFileSize)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	docs, err := ingest.Read(fh.Filename, data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return docs, nil
}

func setTokenHeaders(w http.ResponseWriter, usage *domain.TokenUsage) {
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens()))
	w.Header().Set("X-Generation-Tokens", strconv.Itoa(usage.GenerationTokens()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
