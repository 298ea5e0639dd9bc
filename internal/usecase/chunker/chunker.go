// Package chunker splits ingested pages into overlapping text segments sized for embedding.
package chunker

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/challasaiteja/gemini-quizify/internal/domain"
	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
)

// Strategy selects how page text is cut.
type Strategy string

const (
	// StrategyWindow cuts fixed-size rune windows with overlap.
	StrategyWindow Strategy = "window"
	// StrategyRecursive splits on paragraph, line, then word boundaries.
	StrategyRecursive Strategy = "recursive"
)

// Defaults, in runes.
const (
	DefaultSize    = 1000
	DefaultOverlap = 100
)

// IsValid checks if the strategy is supported.
func (s Strategy) IsValid() bool {
	return s == StrategyWindow || s == StrategyRecursive
}

// Config holds chunking parameters. An empty Strategy or zero Size falls back
// to the defaults; zero Overlap means disjoint chunks.
type Config struct {
	Strategy Strategy
	Size     int
	Overlap  int
}

// Chunker turns Documents into Chunks. It is stateless and safe for concurrent use.
type Chunker struct {
	strategy Strategy
	size     int
	overlap  int
	splitter textsplitter.TextSplitter
}

// New validates cfg and creates a Chunker.
func New(cfg Config) (*Chunker, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyWindow
	}
	if cfg.Size == 0 {
		cfg.Size = DefaultSize
	}
	if !cfg.Strategy.IsValid() {
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", domain.ErrConfiguration, cfg.Strategy)
	}
	if cfg.Size < 1 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, cfg.Size)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d",
			domain.ErrConfiguration, cfg.Size, cfg.Overlap)
	}

	c := &Chunker{strategy: cfg.Strategy, size: cfg.Size, overlap: cfg.Overlap}
	if cfg.Strategy == StrategyRecursive {
		c.splitter = textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.Size),
			textsplitter.WithChunkOverlap(cfg.Overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		)
	}
	return c, nil
}

// Size returns the chunk size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap between consecutive chunks of a page, in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Strategy returns the configured strategy.
func (c *Chunker) Strategy() Strategy { return c.strategy }

// Chunk splits docs in order. Each chunk carries the metadata of its page.
// Zero documents returns domain.ErrEmptyInput; blank pages yield no chunks.
func (c *Chunker) Chunk(docs []document.Document) ([]document.Chunk, error) {
	if len(docs) == 0 {
		return nil, domain.ErrEmptyInput
	}

	chunks := make([]document.Chunk, 0, len(docs))
	for i, doc := range docs {
		if doc.Blank() {
			continue
		}
		pieces, err := c.split(doc.Text())
		if err != nil {
			return nil, fmt.Errorf("split document %d (%s): %w", i, doc.Metadata().Source, err)
		}
		for _, p := range pieces {
			ch, err := document.NewChunk(p, doc.Metadata())
			if err != nil {
				// whitespace-only window inside a long blank run
				continue
			}
			chunks = append(chunks, ch)
		}
	}
	return chunks, nil
}

func (c *Chunker) split(text string) ([]string, error) {
	if c.strategy == StrategyRecursive {
		parts, err := c.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("recursive split: %w", err)
		}
		return parts, nil
	}
	return window(text, c.size, c.overlap), nil
}

// window cuts text into rune windows of size with overlap.
// Consecutive windows share exactly overlap runes, so the first window
// followed by every later window minus its first overlap runes
// reproduces text.
func window(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}
