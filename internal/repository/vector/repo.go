package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
)

const (
	metaSource = "source"
	metaPage   = "page"
)

var (
	errNoEmbeddingFunc = errors.New("collection stores precomputed vectors only")
	// ErrZeroVector signals a vector with zero magnitude, which has no cosine similarity.
	ErrZeroVector = errors.New("zero vector")
)

type match struct {
	chunk      document.Chunk
	similarity float32
	position   int // insertion order
}

// Repo is a transient in-memory vector collection backed by chromem-go.
// Every entry has the same vector dimension. Ranking is cosine similarity,
// ties broken by insertion order.
type Repo struct {
	mu  sync.RWMutex
	col *chromem.Collection
	dim int
	n   int
}

// New creates an empty collection named name.
func New(name string) (*Repo, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(name, nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	})
	if err != nil {
		return nil, fmt.Errorf("create chromem collection %s: %w", name, err)
	}
	return &Repo{col: col}, nil
}

// Len returns the number of stored entries.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.n
}

// Dimension returns the vector dimension, or 0 while empty.
func (r *Repo) Dimension() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dim
}

// Add appends chunks with their vectors in order. The whole batch is rejected
// if any vector is empty, zero, or of a different dimension than the collection.
func (r *Repo) Add(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks and %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dim := r.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return fmt.Errorf("%w: entry %d has %d dimensions, collection has %d",
				domain.ErrVectorDimMismatch, i, len(v), dim)
		}
		if isZero(v) {
			return fmt.Errorf("entry %d: %w", i, ErrZeroVector)
		}
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		md := ch.Metadata()
		docs[i] = chromem.Document{
			ID: strconv.Itoa(r.n + i),
			Metadata: map[string]string{
				metaSource: md.Source,
				metaPage:   strconv.Itoa(md.Page),
			},
			Embedding: vectors[i],
			Content:   ch.Text(),
		}
	}

	if err := r.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	r.dim = dim
	r.n += len(chunks)
	return nil
}

// Query returns up to k chunks ranked by cosine similarity to vec.
// k is clamped to the collection size. An empty collection returns
// domain.ErrEmptyCollection. The collection is not modified.
func (r *Repo) Query(ctx context.Context, vec []float32, k int) ([]document.Chunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.n == 0 {
		return nil, domain.ErrEmptyCollection
	}
	if len(vec) != r.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			domain.ErrVectorDimMismatch, len(vec), r.dim)
	}
	if isZero(vec) {
		return nil, fmt.Errorf("query: %w", ErrZeroVector)
	}

	// Fetch the full ranking so ties can be ordered by insertion position;
	// chromem does not guarantee a stable order for equal scores.
	results, err := r.col.QueryEmbedding(ctx, vec, r.n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	matches := make([]match, 0, len(results))
	for _, res := range results {
		pos, err := strconv.Atoi(res.ID)
		if err != nil {
			return nil, fmt.Errorf("corrupt document id %q: %w", res.ID, err)
		}
		page, _ := strconv.Atoi(res.Metadata[metaPage])
		matches = append(matches, match{
			chunk: document.Reconstruct(res.Content, document.Metadata{
				Source: res.Metadata[metaSource],
				Page:   page,
			}),
			similarity: res.Similarity,
			position:   pos,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].similarity != matches[j].similarity {
			return matches[i].similarity > matches[j].similarity
		}
		return matches[i].position < matches[j].position
	})

	if k > len(matches) {
		k = len(matches)
	}
	out := make([]document.Chunk, k)
	for i := range out {
		out[i] = matches[i].chunk
	}
	return out, nil
}

func isZero(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum) == 0
}
