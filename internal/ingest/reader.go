// Package ingest turns uploaded files into page documents.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/challasaiteja/gemini-quizify/internal/domain/document"
)

// Format is a supported source file type.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ErrUnsupportedFormat is returned for a file extension without a reader.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// MaxFileSize caps a single uploaded file.
const MaxFileSize = 32 << 20

// FormatOf picks the reader by file extension.
func FormatOf(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".txt", ".text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Read extracts the pages of the file called name. PDF pages are numbered
// from 1; other formats yield a single document with page 0.
func Read(name string, data []byte) ([]document.Document, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%s: file too large (max %d bytes)", name, MaxFileSize)
	}

	source := filepath.Base(name)
	var pages []string
	switch format {
	case FormatPDF:
		pages, err = readPDF(data)
	case FormatDOCX:
		pages, err = readDOCX(data)
	case FormatMarkdown:
		pages, err = readMarkdown(data)
	case FormatText:
		pages = []string{sanitize(string(data))}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	docs := make([]document.Document, 0, len(pages))
	for i, text := range pages {
		page := 0
		if format == FormatPDF {
			page = i + 1
		}
		doc, err := document.New(text, source, page)
		if err != nil {
			return nil, fmt.Errorf("read %s: page %d: %w", source, i+1, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ReadFile reads a local file.
func ReadFile(path string) ([]document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Read(path, data)
}

// ReadFiles reads every path in order and concatenates the pages.
func ReadFiles(paths []string) ([]document.Document, error) {
	var docs []document.Document
	for _, p := range paths {
		d, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d...)
	}
	return docs, nil
}
