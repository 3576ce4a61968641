// Package embed generates vector embeddings for chunk and query text.
// The default provider is Ollama's HTTP API; a cache wrapper avoids
// re-embedding repeated queries and a degrade wrapper converts embedding
// failures into logged zero vectors at the pipeline boundary.
package embed

import (
	"context"
	"errors"
	"time"
)

// Embedding request defaults.
const (
	// DefaultBatchSize is the default number of texts per embedding request.
	DefaultBatchSize = 32

	// MaxBatchSize caps batch size to prevent memory exhaustion.
	MaxBatchSize = 256

	// DefaultTimeout is the per-request timeout. First requests may load
	// the model, which dominates the wait.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	// DefaultCacheSize is the default number of cached query embeddings.
	DefaultCacheSize = 1000
)

// ErrEmbedderClosed indicates an operation on a closed embedder.
var ErrEmbedderClosed = errors.New("embedder is closed")

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}
