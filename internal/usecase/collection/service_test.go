package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
)

// --- Fakes ---

type mapEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (m *mapEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	v, ok := m.vectors[text]
	if !ok {
		v = []float32{0, 0, 1}
	}
	return domain.EmbeddingResult{Embedding: v, TotalTokens: 1}, nil
}

type shortBatchEmbedder struct{ mapEmbedder }

func (s *shortBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchEmbeddingResult{Embeddings: [][]float32{{1, 0, 0}}}, nil
}

func chunks(t *testing.T, texts ...string) []document.Chunk {
	t.Helper()
	out := make([]document.Chunk, len(texts))
	for i, text := range texts {
		ch, err := document.NewChunk(text, document.Metadata{Source: "bio.pdf", Page: i + 1})
		if err != nil {
			t.Fatalf("NewChunk: %v", err)
		}
		out[i] = ch
	}
	return out
}

func bioEmbedder() *mapEmbedder {
	return &mapEmbedder{vectors: map[string][]float32{
		"chlorophyll absorbs red and blue light": {0.9, 0.1, 0},
		"mitochondria produce ATP":              {0, 1, 0},
		"the Calvin cycle fixes carbon":         {0.7, 0.3, 0},
		"photosynthesis":                        {1, 0, 0},
	}}
}

// --- Tests ---

func TestBuild_EmptyChunks(t *testing.T) {
	emb := bioEmbedder()
	col, err := NewBuilder(emb, emb).Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if col.Len() != 0 || col.Dimension() != 0 {
		t.Errorf("len=%d dim=%d, want empty", col.Len(), col.Dimension())
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times for zero chunks", emb.calls)
	}

	_, err = col.Query(context.Background(), "photosynthesis", 3)
	if !errors.Is(err, domain.ErrEmptyCollection) {
		t.Fatalf("expected ErrEmptyCollection, got %v", err)
	}
	if emb.calls != 0 {
		t.Error("empty collection should not embed the query")
	}
}

func TestQuery_RanksBySimilarity(t *testing.T) {
	emb := bioEmbedder()
	col, err := NewBuilder(emb, emb).Build(context.Background(), chunks(t,
		"mitochondria produce ATP",
		"the Calvin cycle fixes carbon",
		"chlorophyll absorbs red and blue light",
	))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if col.Len() != 3 || col.Dimension() != 3 {
		t.Fatalf("len=%d dim=%d", col.Len(), col.Dimension())
	}

	tests := []struct {
		name string
		k    int
		want []string
	}{
		{"top two", 2, []string{"chlorophyll absorbs red and blue light", "the Calvin cycle fixes carbon"}},
		{"k above size", 5, []string{
			"chlorophyll absorbs red and blue light",
			"the Calvin cycle fixes carbon",
			"mitochondria produce ATP",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := col.Query(context.Background(), "photosynthesis", tc.k)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			texts := document.Texts(got)
			if len(texts) != len(tc.want) {
				t.Fatalf("got %v, want %v", texts, tc.want)
			}
			for i := range texts {
				if texts[i] != tc.want[i] {
					t.Errorf("rank %d = %q, want %q", i, texts[i], tc.want[i])
				}
			}
		})
	}

	if col.Len() != 3 {
		t.Error("query mutated the collection")
	}
}

func TestQuery_InvalidTopK(t *testing.T) {
	emb := bioEmbedder()
	col, err := NewBuilder(emb, emb).Build(context.Background(), chunks(t, "mitochondria produce ATP"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, k := range []int{0, -1} {
		if _, err := col.Query(context.Background(), "x", k); !errors.Is(err, ErrInvalidTopK) {
			t.Errorf("k=%d: expected ErrInvalidTopK, got %v", k, err)
		}
	}
}

func TestBuild_EmbeddingFailurePropagates(t *testing.T) {
	svcErr := &domain.EmbeddingServiceError{Attempts: 3, Err: errors.New("503")}
	emb := &mapEmbedder{err: svcErr}

	_, err := NewBuilder(emb, emb).Build(context.Background(), chunks(t, "a", "b"))
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}
	var target *domain.EmbeddingServiceError
	if !errors.As(err, &target) || target.Attempts != 3 {
		t.Errorf("typed error lost: %v", err)
	}
}

func TestBuild_VectorCountMismatch(t *testing.T) {
	emb := &shortBatchEmbedder{}
	_, err := NewBuilder(emb, emb).Build(context.Background(), chunks(t, "a", "b"))
	if err == nil {
		t.Fatal("expected error for short batch")
	}
}

func TestBuild_StoreFactoryError(t *testing.T) {
	emb := bioEmbedder()
	b := NewBuilder(emb, emb).WithStoreFactory(func(string) (Store, error) {
		return nil, errors.New("boom")
	})
	if _, err := b.Build(context.Background(), nil); err == nil {
		t.Fatal("expected factory error")
	}
}

func TestQuery_UsesQueryEmbedder(t *testing.T) {
	docs := bioEmbedder()
	queries := &mapEmbedder{vectors: map[string][]float32{"energy": {0, 1, 0}}}

	col, err := NewBuilder(docs, queries).Build(context.Background(), chunks(t,
		"chlorophyll absorbs red and blue light",
		"mitochondria produce ATP",
	))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := col.Query(context.Background(), "energy", 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0].Text() != "mitochondria produce ATP" {
		t.Errorf("top = %q", got[0].Text())
	}
	if queries.calls != 1 {
		t.Errorf("query embedder calls = %d, want 1", queries.calls)
	}
}
