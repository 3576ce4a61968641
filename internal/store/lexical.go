package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// LexicalIndex wraps bleve for keyword search over chunk text. Scores
// are relevance values on bleve's own scale; they are never compared
// directly to vector similarities, only rank-fused.
type LexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// LexicalDoc is the document structure for indexing.
type LexicalDoc struct {
	ID   string
	Text string
}

// bleveDoc is the shape actually stored in bleve.
type bleveDoc struct {
	Text string `json:"text"`
}

// NewLexicalIndex creates or opens a keyword index at path.
// An empty path creates an in-memory index.
func NewLexicalIndex(path string) (*LexicalIndex, error) {
	indexMapping := createLexicalMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create lexical index directory: %w", err)
		}

		if validErr := validateLexicalIntegrity(path); validErr != nil {
			slog.Warn("lexical_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("lexical index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			slog.Info("lexical_index_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, re-ingest required"))
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isLexicalCorruptionError(err) {
			slog.Warn("lexical_index_open_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("lexical index corrupted, cannot clear: %w (original: %v)", removeErr, err)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create/open lexical index: %w", err)
	}

	return &LexicalIndex{index: idx, path: path}, nil
}

// createLexicalMapping builds the index mapping: a single analyzed text
// field using the English analyzer (stemming + stop words fit prose
// documents better than the standard analyzer).
func createLexicalMapping() *mapping.IndexMappingImpl {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("text", textField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = en.AnalyzerName
	return indexMapping
}

// validateLexicalIntegrity checks index_meta.json before opening so a
// half-written index is cleared instead of wedging every startup.
func validateLexicalIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Index doesn't exist, will be created
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

func isLexicalCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// Index adds documents in one batch.
func (l *LexicalIndex) Index(ctx context.Context, docs []LexicalDoc) error {
	if len(docs) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	batch := l.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, bleveDoc{Text: doc.Text}); err != nil {
			return fmt.Errorf("index document %s: %w", doc.ID, err)
		}
	}
	if err := l.index.Batch(batch); err != nil {
		return fmt.Errorf("execute index batch: %w", err)
	}
	return nil
}

// Search returns up to limit keyword matches ranked by relevance.
// An empty or whitespace-only query returns no hits.
func (l *LexicalIndex) Search(ctx context.Context, queryStr string, limit int) ([]LexicalHit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrClosed
	}
	if strings.TrimSpace(queryStr) == "" {
		return nil, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("text")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit

	result, err := l.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]LexicalHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, LexicalHit{ID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// Delete removes documents by ID.
func (l *LexicalIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	batch := l.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := l.index.Batch(batch); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (l *LexicalIndex) Count() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, ErrClosed
	}
	return l.index.DocCount()
}

// Clear drops the index contents and recreates an empty index.
func (l *LexicalIndex) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	if err := l.index.Close(); err != nil {
		return fmt.Errorf("close lexical index: %w", err)
	}

	indexMapping := createLexicalMapping()
	var idx bleve.Index
	var err error
	if l.path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.RemoveAll(l.path); err != nil {
			return fmt.Errorf("remove lexical index: %w", err)
		}
		idx, err = bleve.New(l.path, indexMapping)
	}
	if err != nil {
		return fmt.Errorf("recreate lexical index: %w", err)
	}

	l.index = idx
	return nil
}

// Close releases the index.
func (l *LexicalIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.index.Close()
}
