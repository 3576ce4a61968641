package embed

import (
	"context"
	"log/slog"
)

// DegradeEmbedder converts embedding failures into logged zero vectors.
// It is the orchestration-boundary wrapper for the degrade-not-fail
// policy: inner embedders keep returning real errors, callers above this
// wrapper never see them. A zero vector matches nothing meaningful, so a
// degraded query simply contributes weak results instead of aborting a
// retrieval or an ingest batch.
type DegradeEmbedder struct {
	inner Embedder
}

var _ Embedder = (*DegradeEmbedder)(nil)

// NewDegradeEmbedder wraps an embedder with the degrade policy.
func NewDegradeEmbedder(inner Embedder) *DegradeEmbedder {
	return &DegradeEmbedder{inner: inner}
}

// Embed returns the inner embedding, or a zero vector when the inner
// call fails. Context cancellation is not degraded: the caller asked to
// stop, so the error propagates.
func (d *DegradeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := d.inner.Embed(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("embedding failed, degrading to zero vector",
			slog.String("model", d.inner.ModelName()),
			slog.Int("text_len", len(text)),
			slog.String("error", err.Error()))
		return make([]float32, d.inner.Dimensions()), nil
	}
	return vec, nil
}

// EmbedBatch returns the inner embeddings, or zero vectors for every
// requested text when the inner call fails.
func (d *DegradeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := d.inner.EmbedBatch(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("batch embedding failed, degrading to zero vectors",
			slog.String("model", d.inner.ModelName()),
			slog.Int("batch_size", len(texts)),
			slog.String("error", err.Error()))
		vecs = make([][]float32, len(texts))
		for i := range vecs {
			vecs[i] = make([]float32, d.inner.Dimensions())
		}
		return vecs, nil
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (d *DegradeEmbedder) Dimensions() int { return d.inner.Dimensions() }

// ModelName returns the model identifier.
func (d *DegradeEmbedder) ModelName() string { return d.inner.ModelName() }

// Available checks if the inner embedder is ready.
func (d *DegradeEmbedder) Available(ctx context.Context) bool { return d.inner.Available(ctx) }

// Close closes the inner embedder.
func (d *DegradeEmbedder) Close() error { return d.inner.Close() }
