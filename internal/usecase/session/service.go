// Package session holds per-learner pipeline state in memory and exposes the
// host entry points: ingest, build, generate and navigate.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
	domquiz "github.com/challasaiteja/gemini-quizify/internal/domain/quiz"
	"github.com/challasaiteja/gemini-quizify/internal/usecase/collection"
	"github.com/challasaiteja/gemini-quizify/internal/usecase/quiz"
)

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuizAlreadyGenerated is returned when a session already holds a question bank.
	ErrQuizAlreadyGenerated = errors.New("quiz already generated")
)

// Info describes a session.
type Info struct {
	ID        string
	CreatedAt time.Time
}

// GenerateResult is the outcome of a generation run.
// Questions is usable even when Complete is false.
type GenerateResult struct {
	Questions []domquiz.Question
	Requested int
	Produced  int
	Complete  bool
}

type session struct {
	mu         sync.Mutex
	info       Info
	chunks     []document.Chunk
	collection *collection.Collection
	manager    *quiz.Manager
}

// Service owns all sessions of the process.
type Service struct {
	chunker   Chunker
	builder   CollectionBuilder
	generator QuizGenerator
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	now      func() time.Time
}

// New creates a Service. project is the cloud project the model calls are
// billed to; an empty or placeholder value is rejected before any network call.
func New(
	project string, chunker Chunker, builder CollectionBuilder, generator QuizGenerator, logger *zap.Logger,
) (*Service, error) {
	if err := domain.ValidateProject(project); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		chunker:   chunker,
		builder:   builder,
		generator: generator,
		logger:    logger,
		sessions:  make(map[string]*session),
		now:       time.Now,
	}, nil
}

// Create starts an empty session.
func (s *Service) Create() Info {
	info := Info{ID: uuid.NewString(), CreatedAt: s.now().UTC()}

	s.mu.Lock()
	s.sessions[info.ID] = &session{info: info}
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session_id", info.ID))
	return info
}

// Delete drops a session and everything it holds.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// Ingest chunks docs and appends the chunks to the session. It returns the
// number of chunks added. Any previously built collection is invalidated.
func (s *Service) Ingest(_ context.Context, id string, docs []document.Document) (int, error) {
	sess, err := s.get(id)
	if err != nil {
		return 0, err
	}

	chunks, err := s.chunker.Chunk(docs)
	if err != nil {
		return 0, fmt.Errorf("chunk documents: %w", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.chunks = append(sess.chunks, chunks...)
	sess.collection = nil

	s.logger.Info("documents ingested",
		zap.String("session_id", id),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// BuildCollection (re)builds the vector collection from the stored chunks and
// returns its size. A session without chunks gets an empty collection.
func (s *Service) BuildCollection(ctx context.Context, id string) (int, error) {
	sess, err := s.get(id)
	if err != nil {
		return 0, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.build(ctx, sess); err != nil {
		return 0, err
	}
	return sess.collection.Len(), nil
}

// GenerateQuiz builds the collection when needed and generates n questions on
// topic. A non-empty bank, complete or partial, is frozen into the session and
// the collection is released. A partial result comes back with
// *domain.IncompleteGenerationError, or with the error that stopped the run
// (quota, retrieval, cancellation); res holds the questions produced either way.
func (s *Service) GenerateQuiz(ctx context.Context, id, topic string, n int) (GenerateResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return GenerateResult{}, err
	}
	if err := s.generator.Validate(topic, n); err != nil {
		return GenerateResult{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.manager != nil {
		return GenerateResult{}, ErrQuizAlreadyGenerated
	}
	if sess.collection == nil {
		if err := s.build(ctx, sess); err != nil {
			return GenerateResult{}, err
		}
	}

	logger := s.logger.With(zap.String("session_id", id), zap.String("topic", topic))
	bank, genErr := s.generator.Generate(ctx, topic, n, sess.collection)

	res := GenerateResult{Requested: n, Complete: genErr == nil}
	if bank != nil && bank.Len() > 0 {
		res.Questions = bank.Questions()
		res.Produced = bank.Len()
		sess.manager = quiz.NewManager(res.Questions)
		sess.collection = nil
	}
	switch {
	case genErr == nil:
		return res, nil
	case errors.Is(genErr, domain.ErrIncompleteGeneration):
		logger.Warn("quiz incomplete", zap.Int("produced", res.Produced), zap.Int("requested", n))
	default:
		logger.Warn("quiz generation aborted", zap.Int("produced", res.Produced), zap.Error(genErr))
	}
	return res, fmt.Errorf("generate quiz: %w", genErr)
}

// GetQuestionAtIndex returns the question at i modulo the bank size.
func (s *Service) GetQuestionAtIndex(id string, i int) (domquiz.Question, error) {
	m, err := s.manager(id)
	if err != nil {
		return domquiz.Question{}, err
	}
	return m.GetQuestionAtIndex(i) //nolint:wrapcheck // domain errors pass through
}

// NextQuestionIndex moves the cursor by direction (+1 or -1).
func (s *Service) NextQuestionIndex(id string, direction int) (int, error) {
	m, err := s.manager(id)
	if err != nil {
		return 0, err
	}
	return m.NextQuestionIndex(direction) //nolint:wrapcheck // domain errors pass through
}

// CurrentQuestion returns the question under the cursor and its index.
func (s *Service) CurrentQuestion(id string) (domquiz.Question, int, error) {
	m, err := s.manager(id)
	if err != nil {
		return domquiz.Question{}, 0, err
	}
	idx := m.Cursor()
	q, err := m.GetQuestionAtIndex(idx)
	if err != nil {
		return domquiz.Question{}, 0, err //nolint:wrapcheck // domain errors pass through
	}
	return q, idx, nil
}

// CheckAnswer grades key against the question at i.
func (s *Service) CheckAnswer(id string, i int, key string) (quiz.AnswerResult, error) {
	m, err := s.manager(id)
	if err != nil {
		return quiz.AnswerResult{}, err
	}
	return m.CheckAnswer(i, key) //nolint:wrapcheck // domain errors pass through
}

func (s *Service) build(ctx context.Context, sess *session) error {
	col, err := s.builder.Build(ctx, sess.chunks)
	if err != nil {
		return fmt.Errorf("build collection: %w", err)
	}
	sess.collection = col
	s.logger.Info("collection built",
		zap.String("session_id", sess.info.ID),
		zap.Int("size", col.Len()),
		zap.Int("dimension", col.Dimension()),
	)
	return nil
}

func (s *Service) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// manager returns the session's question manager; a session without a bank
// behaves like an empty one.
func (s *Service) manager(id string) (*quiz.Manager, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.manager == nil {
		return nil, domain.ErrEmptyBank
	}
	return sess.manager, nil
}
