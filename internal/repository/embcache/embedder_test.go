package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func newTestCache(inner *textEmbedder, s *memStore) *CachedEmbedder {
	return New(inner, s, "textembedding-gecko@003", 0, nil, zap.NewNop())
}

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &textEmbedder{tokens: 7}
	s := newMemStore()
	ce := newTestCache(inner, s)
	ctx := context.Background()

	first, err := ce.Embed(ctx, "stomata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 7 || first.Embedding[0] != 7 {
		t.Fatalf("miss result = %+v", first)
	}

	second, err := ce.Embed(ctx, "stomata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if second.TotalTokens != 0 || second.Embedding[0] != 7 {
		t.Errorf("hit result = %+v", second)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &textEmbedder{err: errors.New("provider down")}
	s := newMemStore()
	ce := newTestCache(inner, s)

	if _, err := ce.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if len(s.data) != 0 {
		t.Error("failed embedding must not be cached")
	}
}

func TestEmbed_StoreFailuresDegradeToMiss(t *testing.T) {
	inner := &textEmbedder{tokens: 1}
	s := newMemStore()
	s.getErr = errors.New("connection refused")
	s.setErr = errors.New("connection refused")
	ce := newTestCache(inner, s)

	res, err := ce.Embed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("store failure leaked: %v", err)
	}
	if res.Embedding[0] != 3 {
		t.Errorf("embedding = %v", res.Embedding)
	}
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	inner := &textEmbedder{}
	s := newMemStore()
	ce := newTestCache(inner, s)
	s.data[ce.cacheKey("abc")] = []byte{1, 2, 3}

	res, err := ce.Embed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 || res.Embedding[0] != 3 {
		t.Errorf("calls = %d, embedding = %v", inner.calls, res.Embedding)
	}
}

func TestCacheKey_IncludesModel(t *testing.T) {
	s := newMemStore()
	a := New(&textEmbedder{}, s, "model-a", 0, nil, zap.NewNop())
	b := New(&textEmbedder{}, s, "model-b", 0, nil, zap.NewNop())

	ka, kb := a.cacheKey("text"), b.cacheKey("text")
	if ka == kb {
		t.Error("keys must differ across models")
	}
	if !strings.HasPrefix(ka, "quizify:emb_cache:") {
		t.Errorf("unexpected key prefix: %s", ka)
	}
}

func TestBatchEmbed_OnlyMissesReachInner(t *testing.T) {
	inner := &textEmbedder{tokens: 3}
	s := newMemStore()
	ce := newTestCache(inner, s)
	s.data[ce.cacheKey("hit")] = vectorToCacheBytes([]float32{42})

	res, err := ce.BatchEmbed(context.Background(), []string{"miss1", "hit", "miss22", "miss1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float32{5, 42, 6, 5}
	for i, v := range res.Embeddings {
		if v[0] != want[i] {
			t.Errorf("embedding[%d] = %v, want %v", i, v[0], want[i])
		}
	}
	if inner.batchCalls != 1 || len(inner.batches[0]) != 2 {
		t.Errorf("inner batches = %v, want one batch of the two distinct misses", inner.batches)
	}
	if res.TotalTokens != 6 {
		t.Errorf("TotalTokens = %d, want 6", res.TotalTokens)
	}
	if s.sets != 2 {
		t.Errorf("cached %d entries, want 2", s.sets)
	}
}

func TestBatchEmbed_AllHits(t *testing.T) {
	inner := &textEmbedder{}
	s := newMemStore()
	ce := newTestCache(inner, s)
	for _, text := range []string{"a", "b"} {
		s.data[ce.cacheKey(text)] = vectorToCacheBytes([]float32{9})
	}

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || res.TotalTokens != 0 || inner.batchCalls != 0 {
		t.Errorf("res = %+v, batch calls = %d", res, inner.batchCalls)
	}
}

func TestBatchEmbed_StoreDownFallsThrough(t *testing.T) {
	inner := &textEmbedder{}
	s := newMemStore()
	s.getErr = errors.New("timeout")
	ce := newTestCache(inner, s)

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "bb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || res.Embeddings[1][0] != 2 {
		t.Errorf("embeddings = %v", res.Embeddings)
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	ce := newTestCache(&textEmbedder{err: errors.New("api down")}, newMemStore())
	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error from inner batch embedder")
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	ce := newTestCache(&textEmbedder{}, newMemStore())
	res, err := ce.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil {
		t.Fatalf("BatchEmbed(nil) = %+v, %v", res, err)
	}
}

func TestBatchEmbed_TTLAndMetrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	s := newMemStore()
	ce := New(&textEmbedder{}, s, "m", 24*time.Hour, counter, zap.NewNop())
	s.data[ce.cacheKey("hit")] = vectorToCacheBytes([]float32{1})

	if _, err := ce.BatchEmbed(context.Background(), []string{"hit", "miss"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.lastTTL != 24*time.Hour {
		t.Errorf("ttl = %v", s.lastTTL)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
		t.Errorf("hits = %v", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
		t.Errorf("misses = %v", v)
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3e-7}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("value %d: %v != %v", i, out[i], in[i])
		}
	}
	if _, err := bytesToVector([]byte{1}); err == nil {
		t.Error("expected error for truncated data")
	}
}
