package document

import (
	"fmt"
	"strings"
)

// MaxTextSize is the maximum page text size in bytes.
const MaxTextSize = 1 << 20 // 1MB

// Metadata locates a page or chunk in its source file.
type Metadata struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Document is one ingested page (immutable value object).
type Document struct {
	text     string
	metadata Metadata
}

// New validates and creates a Document.
// Page numbers start at 1; 0 means the source has no pages.
// Whitespace-only text is allowed here and skipped by the chunker.
func New(text, source string, page int) (Document, error) {
	if page < 0 {
		return Document{}, fmt.Errorf("page must be >= 0, got %d", page)
	}
	if len(text) > MaxTextSize {
		return Document{}, fmt.Errorf("page text too large (max %d bytes)", MaxTextSize)
	}
	return Document{
		text:     text,
		metadata: Metadata{Source: strings.TrimSpace(source), Page: page},
	}, nil
}

// Text returns the page text.
func (d Document) Text() string { return d.text }

// Metadata returns the source location.
func (d Document) Metadata() Metadata { return d.metadata }

// Blank reports whether the page has no visible text.
func (d Document) Blank() bool { return strings.TrimSpace(d.text) == "" }

// Chunk is a bounded slice of one Document's text.
type Chunk struct {
	text     string
	metadata Metadata
}

// NewChunk creates a chunk. Empty or whitespace-only text is rejected.
func NewChunk(text string, md Metadata) (Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return Chunk{}, fmt.Errorf("chunk text is empty")
	}
	return Chunk{text: text, metadata: md}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(text string, md Metadata) Chunk {
	return Chunk{text: text, metadata: md}
}

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// Metadata returns the metadata of the page the chunk came from.
func (c Chunk) Metadata() Metadata { return c.metadata }

// Texts returns the text of each chunk, in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.text
	}
	return out
}
