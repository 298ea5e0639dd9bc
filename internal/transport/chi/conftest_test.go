package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
	domquiz "github.com/challasaiteja/gemini-quizify/internal/domain/quiz"
	healthuc "github.com/challasaiteja/gemini-quizify/internal/usecase/health"
	quizuc "github.com/challasaiteja/gemini-quizify/internal/usecase/quiz"
	sessionuc "github.com/challasaiteja/gemini-quizify/internal/usecase/session"
	usageuc "github.com/challasaiteja/gemini-quizify/internal/usecase/usage"
)

const knownSession = "3f1c9a52-0b7e-4d2a-9f51-6c2d8e0a7b14"

// fakeSessions knows a single session id; every other id is not found.
type fakeSessions struct {
	questions []domquiz.Question
	cursor    int

	ingested   []document.Document
	chunks     int
	size       int
	generate   sessionuc.GenerateResult
	genErr     error
	buildErr   error
	lastTopic  string
	lastN      int
	lastStep   int
	lastAnswer string
	deleted    bool
	panicOn    string

	embedTokens int
	genTokens   int
}

func (f *fakeSessions) check(id string) error {
	if id != knownSession {
		return sessionuc.ErrSessionNotFound
	}
	return nil
}

func (f *fakeSessions) Create() sessionuc.Info {
	return sessionuc.Info{ID: knownSession, CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeSessions) Delete(id string) error {
	if err := f.check(id); err != nil {
		return err
	}
	f.deleted = true
	return nil
}

func (f *fakeSessions) Ingest(_ context.Context, id string, docs []document.Document) (int, error) {
	if err := f.check(id); err != nil {
		return 0, err
	}
	f.ingested = append(f.ingested, docs...)
	return f.chunks, nil
}

func (f *fakeSessions) BuildCollection(ctx context.Context, id string) (int, error) {
	if err := f.check(id); err != nil {
		return 0, err
	}
	domain.UsageFromContext(ctx).AddEmbedding(f.embedTokens)
	return f.size, f.buildErr
}

func (f *fakeSessions) GenerateQuiz(ctx context.Context, id, topic string, n int) (sessionuc.GenerateResult, error) {
	if f.panicOn == "generate" {
		panic("boom")
	}
	if err := f.check(id); err != nil {
		return sessionuc.GenerateResult{}, err
	}
	f.lastTopic, f.lastN = topic, n
	domain.UsageFromContext(ctx).AddEmbedding(f.embedTokens)
	domain.UsageFromContext(ctx).AddGeneration(f.genTokens)
	return f.generate, f.genErr
}

func (f *fakeSessions) manager(id string) (*quizuc.Manager, error) {
	if err := f.check(id); err != nil {
		return nil, err
	}
	m := quizuc.NewManager(f.questions)
	for i := 0; i < f.cursor; i++ {
		if _, err := m.NextQuestionIndex(1); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (f *fakeSessions) GetQuestionAtIndex(id string, i int) (domquiz.Question, error) {
	m, err := f.manager(id)
	if err != nil {
		return domquiz.Question{}, err
	}
	return m.GetQuestionAtIndex(i)
}

func (f *fakeSessions) NextQuestionIndex(id string, direction int) (int, error) {
	m, err := f.manager(id)
	if err != nil {
		return 0, err
	}
	f.lastStep = direction
	idx, err := m.NextQuestionIndex(direction)
	if err == nil {
		f.cursor = idx
	}
	return idx, err
}

func (f *fakeSessions) CurrentQuestion(id string) (domquiz.Question, int, error) {
	m, err := f.manager(id)
	if err != nil {
		return domquiz.Question{}, 0, err
	}
	q, err := m.Current()
	return q, m.Cursor(), err
}

func (f *fakeSessions) CheckAnswer(id string, i int, key string) (quizuc.AnswerResult, error) {
	m, err := f.manager(id)
	if err != nil {
		return quizuc.AnswerResult{}, err
	}
	f.lastAnswer = key
	return m.CheckAnswer(i, key)
}

type fakeHealth struct {
	report healthuc.Report
}

func (f fakeHealth) Check(context.Context) healthuc.Report { return f.report }

func sampleQuestion(text, answer string) domquiz.Question {
	return domquiz.Question{
		Question: text,
		Choices: []domquiz.Choice{
			{Key: "A", Value: "Chlorophyll"},
			{Key: "B", Value: "Mitochondria"},
			{Key: "C", Value: "Ribosome"},
		},
		Answer:      answer,
		Explanation: "Chlorophyll absorbs light.",
	}
}

func sampleBank() []domquiz.Question {
	return []domquiz.Question{
		sampleQuestion("Which pigment absorbs light?", "A"),
		sampleQuestion("Where is ATP mostly made?", "B"),
		sampleQuestion("What builds proteins?", "C"),
	}
}

func newTestServer(t *testing.T, sessions *fakeSessions) *httptest.Server {
	t.Helper()
	health := fakeHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}}
	srv := httptest.NewServer(NewServer(sessions, health, usageuc.New(nil), zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectError(t *testing.T, resp *http.Response, status int, code errorCode) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d", resp.StatusCode, status)
	}
	body := decode[errorResponse](t, resp)
	if body.Code != code {
		t.Errorf("code = %q, want %q (message %q)", body.Code, code, body.Message)
	}
}

var errProviderDown = &domain.ProviderError{Op: "chat", StatusCode: http.StatusBadGateway, Err: io.ErrUnexpectedEOF}
