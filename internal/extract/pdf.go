package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/docqa/docqa/internal/chunk"
)

// A page with more than minTextChars characters counts as a text page;
// a document where fewer than textPageRatio of the pages are text pages
// is treated as scanned and routed through OCR.
const (
	minTextChars  = 50
	textPageRatio = 0.1
)

// PDFExtractor reads per-page plain text from PDF files. Scanned
// documents are detected heuristically and re-extracted page by page
// through the configured OCR; without one they keep the sparse plain
// text.
type PDFExtractor struct {
	ocr OCR
}

var _ Source = (*PDFExtractor)(nil)

// NewPDFExtractor creates a PDF extractor. A nil ocr disables the OCR
// fallback.
func NewPDFExtractor(ocr OCR) *PDFExtractor {
	if ocr == nil {
		ocr = UnavailableOCR{}
	}
	return &PDFExtractor{ocr: ocr}
}

// Extract reads the document at path.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (doc *Document, err error) {
	// The PDF parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	pages := make([]chunk.Page, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, chunk.Page{Number: i, Method: chunk.MethodPlain})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("page text extraction failed",
				slog.String("file", path),
				slog.Int("page", i),
				slog.String("error", err.Error()))
			text = ""
		}
		pages = append(pages, chunk.Page{
			Number: i,
			Text:   strings.TrimSpace(text),
			Method: chunk.MethodPlain,
		})
	}

	ocrPages := 0
	if needsOCR(pages) {
		ocrPages = e.applyOCR(ctx, path, pages)
	}

	doc = &Document{
		Metadata: documentMetadata(reader, path),
		Pages:    pages,
		Stats:    buildStats(pages, ocrPages),
	}
	return doc, nil
}

// applyOCR re-extracts sparse pages through the OCR, mutating pages in
// place. It returns the number of pages recognized.
func (e *PDFExtractor) applyOCR(ctx context.Context, path string, pages []chunk.Page) int {
	recognized := 0
	for i := range pages {
		if len(pages[i].Text) > minTextChars {
			continue
		}

		text, err := e.ocr.RecognizePage(ctx, path, pages[i].Number)
		if err != nil {
			if err == ErrOCRUnavailable {
				slog.Warn("document appears scanned but ocr is not available",
					slog.String("file", path))
				return recognized
			}
			slog.Warn("ocr failed for page",
				slog.String("file", path),
				slog.Int("page", pages[i].Number),
				slog.String("error", err.Error()))
			continue
		}

		pages[i].Text = strings.TrimSpace(text)
		pages[i].Method = chunk.MethodOCR
		recognized++
	}
	return recognized
}

// needsOCR reports whether the document looks scanned: fewer than
// textPageRatio of its pages carry more than minTextChars characters.
func needsOCR(pages []chunk.Page) bool {
	if len(pages) == 0 {
		return false
	}
	textPages := 0
	for _, p := range pages {
		if len(p.Text) > minTextChars {
			textPages++
		}
	}
	return float64(textPages)/float64(len(pages)) < textPageRatio
}

func buildStats(pages []chunk.Page, ocrPages int) Stats {
	chars := 0
	for _, p := range pages {
		chars += len(p.Text)
	}
	return Stats{Pages: len(pages), Characters: chars, OCRPages: ocrPages}
}

// documentMetadata reads the PDF Info dictionary, falling back to the
// file name for the title.
func documentMetadata(reader *pdf.Reader, path string) Metadata {
	meta := Metadata{Filename: filepath.Base(path)}

	info := reader.Trailer().Key("Info")
	if !info.IsNull() {
		meta.Title = strings.TrimSpace(info.Key("Title").Text())
		meta.Author = strings.TrimSpace(info.Key("Author").Text())
	}
	if meta.Title == "" {
		meta.Title = titleFromFilename(meta.Filename)
	}
	return meta
}

// titleFromFilename derives a display title from a file name by
// dropping the extension.
func titleFromFilename(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
