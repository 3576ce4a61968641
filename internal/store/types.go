// Package store is the persistence layer for indexed documents: an HNSW
// vector store for semantic search, a bleve index for keyword search, and
// a SQLite store for chunk text and metadata, composed behind Index.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/docqa/docqa/internal/chunk"
)

// SearchCandidate is one retrieval result. Produced per query variant by
// the index; consumed but never mutated downstream except for the fusion
// score attached during ranking.
type SearchCandidate struct {
	// ID is the chunk's index identifier (assigned at upsert).
	ID string

	// Text is the chunk content.
	Text string

	Metadata chunk.Metadata

	// Distance is the unit-scale vector distance (0 identical, 1 opposite).
	// Meaningful only when Similarity is set.
	Distance float64

	// Similarity is 1 - Distance when a distance metric is defined.
	// Zero means undefined: lexical-only candidates carry no similarity
	// and are treated as similarity 0 by threshold filters.
	Similarity float64
}

// DocumentIndex is the retrieval surface over persisted chunks.
type DocumentIndex interface {
	// Search finds the k nearest chunks to a query vector.
	Search(ctx context.Context, vector []float32, k int) ([]SearchCandidate, error)

	// LexicalSearch finds the k best keyword matches for a query string.
	LexicalSearch(ctx context.Context, query string, k int) ([]SearchCandidate, error)

	// Upsert stores chunks with their vectors. chunks and vectors must
	// be the same length and aligned by position.
	Upsert(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error

	// Clear removes all indexed data.
	Clear(ctx context.Context) error

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)

	// Save persists in-memory state to disk.
	Save() error

	Close() error
}

// VectorHit is one vector search result.
type VectorHit struct {
	ID         string
	Distance   float64 // unit scale, 0-1
	Similarity float64 // 1 - Distance
}

// LexicalHit is one keyword search result.
type LexicalHit struct {
	ID    string
	Score float64 // BM25-style relevance, not comparable to Similarity
}

// ErrClosed indicates an operation on a closed store.
var ErrClosed = errors.New("store is closed")

// ErrLocked indicates the data directory is held by another process.
var ErrLocked = errors.New("data directory is locked by another process")

// ErrDimensionMismatch indicates a vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (clear and re-ingest with the current embedding model)", e.Expected, e.Got)
}
