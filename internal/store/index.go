package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/docqa/docqa/internal/chunk"
)

// Index file names inside the data directory.
const (
	vectorFileName = "vectors.hnsw"
	lexicalDirName = "lexical.bleve"
	chunksFileName = "chunks.db"
	lockFileName   = ".lock"
)

// Index composes the vector store, the lexical index, and the chunk
// store behind the DocumentIndex interface. The data directory is
// guarded by a cross-process file lock: one writer at a time.
type Index struct {
	mu      sync.RWMutex
	dir     string
	vectors *VectorStore // nil until the embedding dimension is known
	lexical *LexicalIndex
	chunks  *ChunkStore
	lock    *flock.Flock
	closed  bool
}

var _ DocumentIndex = (*Index)(nil)

// Open opens (or creates) the index in dir. dimensions may be 0 to
// defer vector store creation until the first Upsert or until an
// existing store is loaded; a non-zero value that conflicts with an
// existing store is a fatal configuration error.
func Open(dir string, dimensions int) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire data directory lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	idx := &Index{dir: dir, lock: lock}

	cleanup := func() {
		if idx.chunks != nil {
			_ = idx.chunks.Close()
		}
		if idx.lexical != nil {
			_ = idx.lexical.Close()
		}
		_ = lock.Unlock()
	}

	idx.chunks, err = NewChunkStore(filepath.Join(dir, chunksFileName))
	if err != nil {
		cleanup()
		return nil, err
	}

	idx.lexical, err = NewLexicalIndex(filepath.Join(dir, lexicalDirName))
	if err != nil {
		cleanup()
		return nil, err
	}

	vectorPath := filepath.Join(dir, vectorFileName)
	stored, err := StoredVectorDimensions(vectorPath)
	if err != nil {
		cleanup()
		return nil, err
	}

	switch {
	case stored > 0:
		if dimensions > 0 && dimensions != stored {
			cleanup()
			return nil, ErrDimensionMismatch{Expected: stored, Got: dimensions}
		}
		idx.vectors, err = NewVectorStore(VectorOptions{Dimensions: stored})
		if err != nil {
			cleanup()
			return nil, err
		}
		if err := idx.vectors.Load(vectorPath); err != nil {
			cleanup()
			return nil, err
		}
	case dimensions > 0:
		idx.vectors, err = NewVectorStore(VectorOptions{Dimensions: dimensions})
		if err != nil {
			cleanup()
			return nil, err
		}
	}

	return idx, nil
}

// Search finds the k nearest chunks to a query vector and hydrates
// their text and metadata from the chunk store.
func (x *Index) Search(ctx context.Context, vector []float32, k int) ([]SearchCandidate, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, ErrClosed
	}
	if x.vectors == nil {
		return nil, nil // nothing has been indexed yet
	}

	hits, err := x.vectors.Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	records, err := x.chunks.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]SearchCandidate, 0, len(hits))
	for _, h := range hits {
		rec, ok := records[h.ID]
		if !ok {
			slog.Warn("vector hit without chunk record",
				slog.String("id", h.ID))
			continue
		}
		candidates = append(candidates, SearchCandidate{
			ID:         h.ID,
			Text:       rec.Text,
			Metadata:   rec.Metadata,
			Distance:   h.Distance,
			Similarity: h.Similarity,
		})
	}
	return candidates, nil
}

// LexicalSearch finds the k best keyword matches and hydrates them.
// Lexical candidates carry no vector similarity; Similarity stays 0.
func (x *Index) LexicalSearch(ctx context.Context, query string, k int) ([]SearchCandidate, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, ErrClosed
	}

	hits, err := x.lexical.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	records, err := x.chunks.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]SearchCandidate, 0, len(hits))
	for _, h := range hits {
		rec, ok := records[h.ID]
		if !ok {
			slog.Warn("lexical hit without chunk record",
				slog.String("id", h.ID))
			continue
		}
		candidates = append(candidates, SearchCandidate{
			ID:       h.ID,
			Text:     rec.Text,
			Metadata: rec.Metadata,
		})
	}
	return candidates, nil
}

// Upsert stores chunks with their vectors under fresh IDs.
func (x *Index) Upsert(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return ErrClosed
	}

	if x.vectors == nil {
		vs, err := NewVectorStore(VectorOptions{Dimensions: len(vectors[0])})
		if err != nil {
			return err
		}
		x.vectors = vs
	}

	ids := make([]string, len(chunks))
	docs := make([]LexicalDoc, len(chunks))
	for i, c := range chunks {
		ids[i] = uuid.NewString()
		docs[i] = LexicalDoc{ID: ids[i], Text: c.Text}
	}

	if err := x.chunks.SaveChunks(ctx, ids, chunks); err != nil {
		return err
	}
	if err := x.vectors.Add(ctx, ids, vectors); err != nil {
		return err
	}
	return x.lexical.Index(ctx, docs)
}

// Count returns the number of indexed chunks.
func (x *Index) Count(ctx context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return 0, ErrClosed
	}
	return x.chunks.Count(ctx)
}

// Clear removes all indexed data but keeps the index usable.
func (x *Index) Clear(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return ErrClosed
	}

	if err := x.chunks.Clear(ctx); err != nil {
		return err
	}
	if err := x.lexical.Clear(); err != nil {
		return err
	}

	if x.vectors != nil {
		dims := x.vectors.Dimensions()
		_ = x.vectors.Close()
		vs, err := NewVectorStore(VectorOptions{Dimensions: dims})
		if err != nil {
			return err
		}
		x.vectors = vs
	}

	vectorPath := filepath.Join(x.dir, vectorFileName)
	for _, p := range []string{vectorPath, vectorPath + ".meta"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove vector store file: %w", err)
		}
	}
	return nil
}

// Save persists the vector store to disk. The chunk store and lexical
// index persist their own writes.
func (x *Index) Save() error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return ErrClosed
	}
	if x.vectors == nil || x.vectors.Count() == 0 {
		return nil
	}
	return x.vectors.Save(filepath.Join(x.dir, vectorFileName))
}

// Close saves pending state, closes the stores, and releases the lock.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true

	var firstErr error
	if x.vectors != nil && x.vectors.Count() > 0 {
		if err := x.vectors.Save(filepath.Join(x.dir, vectorFileName)); err != nil {
			firstErr = err
		}
	}
	if x.vectors != nil {
		if err := x.vectors.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := x.lexical.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := x.chunks.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := x.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
