package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/docqa/docqa/internal/chunk"
	"github.com/docqa/docqa/internal/store"
)

// cand builds a search candidate with a stable text derived from the id
// unless overridden.
func cand(id, text string, similarity float64) store.SearchCandidate {
	if text == "" {
		text = "passage for " + id
	}
	return store.SearchCandidate{ID: id, Text: text, Similarity: similarity}
}

// fakeEmbedder maps query text to preset vectors. Unknown texts embed
// to a zero vector.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

func (f *fakeEmbedder) Dimensions() int                    { return 1 }
func (f *fakeEmbedder) ModelName() string                  { return "fake-model" }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                       { return nil }

// fakeIndex serves canned result lists. Semantic results are keyed by
// the first vector element, lexical results by query text.
type fakeIndex struct {
	semantic map[float32][]store.SearchCandidate
	lexical  map[string][]store.SearchCandidate
	lexErr   map[string]error
	delay    time.Duration

	mu             sync.Mutex
	lexicalQueries []string
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, k int) ([]store.SearchCandidate, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	var key float32
	if len(vector) > 0 {
		key = vector[0]
	}
	results := f.semantic[key]
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (f *fakeIndex) LexicalSearch(ctx context.Context, query string, k int) ([]store.SearchCandidate, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lexicalQueries = append(f.lexicalQueries, query)
	f.mu.Unlock()

	if err := f.lexErr[query]; err != nil {
		return nil, err
	}
	results := f.lexical[query]
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (f *fakeIndex) wait(ctx context.Context) error {
	if f.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.delay):
		return nil
	}
}

func (f *fakeIndex) queriedLexical() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.lexicalQueries))
	copy(out, f.lexicalQueries)
	return out
}

func (f *fakeIndex) Upsert(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error {
	return nil
}
func (f *fakeIndex) Clear(ctx context.Context) error        { return nil }
func (f *fakeIndex) Count(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeIndex) Save() error                            { return nil }
func (f *fakeIndex) Close() error                           { return nil }

// fakeGenerator returns preset expansion alternatives.
type fakeGenerator struct {
	alternatives []string
	err          error
}

var errFakeGenerate = errors.New("generation backend unavailable")

func (f *fakeGenerator) Expand(ctx context.Context, query string, n int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.alternatives) > n {
		return f.alternatives[:n], nil
	}
	return f.alternatives, nil
}

func (f *fakeGenerator) Answer(ctx context.Context, question, contextText string) (string, error) {
	return "", nil
}

func (f *fakeGenerator) ModelName() string                  { return "fake-model" }
func (f *fakeGenerator) Available(ctx context.Context) bool { return true }
func (f *fakeGenerator) Close() error                       { return nil }
