package embed

import (
	"context"
	"errors"
	"sync/atomic"
)

// fakeEmbedder is a deterministic in-memory embedder for tests.
// It counts calls so cache behavior can be asserted.
type fakeEmbedder struct {
	dims       int
	fail       atomic.Bool
	embedCalls atomic.Int64
	batchCalls atomic.Int64
}

var errFakeEmbed = errors.New("embedding backend unavailable")

func newFakeEmbedder(dims int) *fakeEmbedder {
	return &fakeEmbedder{dims: dims}
}

// vectorFor derives a stable vector from the text length.
func (f *fakeEmbedder) vectorFor(text string) []float32 {
	vec := make([]float32, f.dims)
	for i := range vec {
		vec[i] = float32(len(text)+i) / 100.0
	}
	return vec
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls.Add(1)
	if f.fail.Load() {
		return nil, errFakeEmbed
	}
	return f.vectorFor(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls.Add(1)
	if f.fail.Load() {
		return nil, errFakeEmbed
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = f.vectorFor(t)
	}
	return vecs, nil
}

func (f *fakeEmbedder) Dimensions() int                    { return f.dims }
func (f *fakeEmbedder) ModelName() string                  { return "fake-model" }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return !f.fail.Load() }
func (f *fakeEmbedder) Close() error                       { return nil }
