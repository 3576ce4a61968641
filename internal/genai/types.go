// Package genai is the generation surface of the pipeline: producing
// query paraphrases for retrieval fan-out and producing the final
// grounded answer text. Both operations may fail; callers fall back to
// the unexpanded query or surface the failure, they never retry here.
package genai

import (
	"context"
	"errors"
)

// ErrGeneratorClosed indicates an operation on a closed generator.
var ErrGeneratorClosed = errors.New("generator is closed")

// Generator produces text from prompts.
type Generator interface {
	// Expand generates up to n alternative phrasings of query. The
	// returned slice contains only the alternatives, not the original
	// query.
	Expand(ctx context.Context, query string, n int) ([]string, error)

	// Answer generates a grounded answer to question constrained to the
	// given context passages.
	Answer(ctx context.Context, question, contextText string) (string, error)

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the generator is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}
