// Package extract turns source documents into per-page text for
// chunking. The shipped extractor reads PDFs; scanned pages fall back
// to an optional OCR capability.
package extract

import (
	"context"
	"errors"

	"github.com/docqa/docqa/internal/chunk"
)

// ErrOCRUnavailable indicates no OCR capability is configured.
var ErrOCRUnavailable = errors.New("ocr is not available")

// Metadata is document-level context attached to every chunk.
type Metadata struct {
	Title    string
	Author   string
	Filename string
}

// Stats summarizes an extraction run.
type Stats struct {
	Pages      int
	Characters int
	OCRPages   int
}

// Document is the extraction result: document metadata plus per-page
// text in page order.
type Document struct {
	Metadata Metadata
	Pages    []chunk.Page
	Stats    Stats
}

// Source extracts a document from a file path.
type Source interface {
	Extract(ctx context.Context, path string) (*Document, error)
}

// OCR recognizes text on a single page of a scanned document.
type OCR interface {
	RecognizePage(ctx context.Context, path string, pageNumber int) (string, error)
}

// UnavailableOCR is the default OCR: it always reports
// ErrOCRUnavailable, leaving scanned pages with whatever text the plain
// extraction produced.
type UnavailableOCR struct{}

func (UnavailableOCR) RecognizePage(ctx context.Context, path string, pageNumber int) (string, error) {
	return "", ErrOCRUnavailable
}
