package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/store"
)

func semanticOnlyOptions(threshold float64) Options {
	return Options{
		TopK:                8,
		SimilarityThreshold: threshold,
		Parallelism:         2,
	}
}

func TestRetriever_ThresholdFilter(t *testing.T) {
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.5), cand("b", "", 0.2)},
		},
	}
	r := NewRetriever(index, &fakeEmbedder{}, nil, semanticOnlyOptions(0.3))

	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestRetriever_ThresholdMonotonic(t *testing.T) {
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.9), cand("b", "", 0.5), cand("c", "", 0.31), cand("d", "", 0.1)},
		},
	}

	prev := len(index.semantic[0]) + 1
	for _, threshold := range []float64{0.0, 0.2, 0.4, 0.6, 0.95} {
		r := NewRetriever(index, &fakeEmbedder{}, nil, semanticOnlyOptions(threshold))
		results, err := r.Retrieve(context.Background(), "question")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), prev, "threshold %v", threshold)
		prev = len(results)
	}
}

func TestRetriever_UndefinedSimilarityFiltered(t *testing.T) {
	// A candidate with no similarity defined counts as 0 and falls below
	// any positive threshold.
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.8), cand("b", "", 0)},
		},
	}
	r := NewRetriever(index, &fakeEmbedder{}, nil, semanticOnlyOptions(0.3))

	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestRetriever_SemanticSortsBySimilarity(t *testing.T) {
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("low", "", 0.4), cand("high", "", 0.9), cand("mid", "", 0.6)},
		},
	}
	r := NewRetriever(index, &fakeEmbedder{}, nil, semanticOnlyOptions(0))

	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "high", results[0].ID)
	assert.Equal(t, "mid", results[1].ID)
	assert.Equal(t, "low", results[2].ID)
}

func TestRetriever_HybridFusedRanking(t *testing.T) {
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.9), cand("b", "", 0.8)},
		},
		lexical: map[string][]store.SearchCandidate{
			"question": {cand("b", "", 0.8), cand("c", "", 0.5)},
		},
	}
	r := NewRetriever(index, &fakeEmbedder{}, nil, Options{
		TopK:        8,
		Hybrid:      true,
		Parallelism: 2,
	})

	// a: 0.7, b: 0.35 + 0.3 = 0.65, c: 0.15
	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Equal(t, "c", results[2].ID)
}

func TestRetriever_HybridLexicalOnlyFilteredByThreshold(t *testing.T) {
	// Lexical-only candidates carry no similarity, so a positive
	// threshold drops them even when their fused score is high.
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.8)},
		},
		lexical: map[string][]store.SearchCandidate{
			"question": {cand("lex", "", 0)},
		},
	}
	r := NewRetriever(index, &fakeEmbedder{}, nil, Options{
		TopK:                8,
		SimilarityThreshold: 0.3,
		Hybrid:              true,
		Parallelism:         2,
	})

	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestRetriever_VariantContributionCappedAtTopK(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"question": {0},
		"alt":      {1},
	}}
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.9), cand("b", "", 0.8)},
			1: {cand("a", "", 0.9), cand("e", "", 0.8)},
		},
		lexical: map[string][]store.SearchCandidate{
			"question": {cand("c", "", 0), cand("d", "", 0)},
			"alt":      {cand("c", "", 0), cand("f", "", 0)},
		},
	}
	gen := &fakeGenerator{alternatives: []string{"alt"}}

	r := NewRetriever(index, embedder, gen, Options{
		TopK:          2,
		Hybrid:        true,
		Parallelism:   2,
		ExpandQueries: true,
		MinVariations: 2,
		MaxVariations: 2,
	})

	// "c" sits below the top-k cut of every variant's fused list, so its
	// repeated low-rank appearances must not outvote "b", which made the
	// cut in the original variant.
	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestRetriever_ExpansionFansOut(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"question": {0},
		"alt one":  {1},
		"alt two":  {2},
	}}
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.9)},
			1: {cand("a", "", 0.95)},
			2: {cand("b", "", 0.5)},
		},
		lexical: map[string][]store.SearchCandidate{},
	}
	gen := &fakeGenerator{alternatives: []string{"alt one", "alt two"}}

	r := NewRetriever(index, embedder, gen, Options{
		TopK:          8,
		Hybrid:        true,
		Parallelism:   2,
		ExpandQueries: true,
		MinVariations: 3,
		MaxVariations: 3,
	})

	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Contributions from the same id accumulate across variants, so "a"
	// outranks "b"; the instance with the highest similarity is kept.
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, 0.95, results[0].Similarity)
	assert.Equal(t, "b", results[1].ID)

	// All three variants hit the lexical index
	assert.ElementsMatch(t, []string{"question", "alt one", "alt two"}, index.queriedLexical())
}

func TestRetriever_ExpansionFailureFallsBack(t *testing.T) {
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.9)},
		},
		lexical: map[string][]store.SearchCandidate{},
	}
	gen := &fakeGenerator{err: errFakeGenerate}

	r := NewRetriever(index, &fakeEmbedder{}, gen, Options{
		TopK:          8,
		Hybrid:        true,
		Parallelism:   2,
		ExpandQueries: true,
	})

	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err, "expansion failure must not fail retrieval")
	require.Len(t, results, 1)
	assert.Equal(t, []string{"question"}, index.queriedLexical())
}

func TestRetriever_VariantFailureIsolated(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"question": {0},
		"broken":   {1},
	}}
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.9)},
			1: {cand("b", "", 0.8)},
		},
		lexical: map[string][]store.SearchCandidate{},
		lexErr:  map[string]error{"broken": errFakeGenerate},
	}
	gen := &fakeGenerator{alternatives: []string{"broken"}}

	r := NewRetriever(index, embedder, gen, Options{
		TopK:          8,
		Hybrid:        true,
		Parallelism:   2,
		ExpandQueries: true,
		MinVariations: 2,
		MaxVariations: 2,
	})

	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, results, 1, "failed variant contributes nothing")
	assert.Equal(t, "a", results[0].ID)
}

func TestRetriever_VariantTimeoutDegrades(t *testing.T) {
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.9)},
		},
		delay: 200 * time.Millisecond,
	}
	r := NewRetriever(index, &fakeEmbedder{}, nil, Options{
		TopK:          8,
		Parallelism:   2,
		SearchTimeout: 10 * time.Millisecond,
	})

	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err, "per-variant timeout must degrade, not fail")
	assert.Empty(t, results)
}

func TestRetriever_CancellationAborts(t *testing.T) {
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.9)},
		},
	}
	r := NewRetriever(index, &fakeEmbedder{}, nil, semanticOnlyOptions(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Retrieve(ctx, "question")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetriever_TopKTruncation(t *testing.T) {
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {cand("a", "", 0.9), cand("b", "", 0.8), cand("c", "", 0.7)},
		},
	}
	r := NewRetriever(index, &fakeEmbedder{}, nil, semanticOnlyOptions(0))

	results, err := r.RetrieveTopK(context.Background(), "question", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestRetriever_DuplicatePrefixAcrossVariantsDeduped(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"question": {0},
		"alt":      {1},
	}}
	text := "identical passage surfaced by two different variants"
	index := &fakeIndex{
		semantic: map[float32][]store.SearchCandidate{
			0: {{ID: "a", Text: text, Similarity: 0.9}},
			1: {{ID: "b", Text: text, Similarity: 0.8}},
		},
		lexical: map[string][]store.SearchCandidate{},
	}
	gen := &fakeGenerator{alternatives: []string{"alt"}}

	r := NewRetriever(index, embedder, gen, Options{
		TopK:          8,
		Hybrid:        true,
		Parallelism:   2,
		ExpandQueries: true,
		MinVariations: 2,
		MaxVariations: 2,
	})

	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID, "first-inserted duplicate wins")
}

func TestRetriever_EmptyQuery(t *testing.T) {
	r := NewRetriever(&fakeIndex{}, &fakeEmbedder{}, nil, semanticOnlyOptions(0))

	results, err := r.Retrieve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetriever_EmptyIndex(t *testing.T) {
	r := NewRetriever(&fakeIndex{}, &fakeEmbedder{}, nil, semanticOnlyOptions(0.3))

	results, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNewRetriever_Defaults(t *testing.T) {
	r := NewRetriever(&fakeIndex{}, &fakeEmbedder{}, nil, Options{})

	assert.Equal(t, DefaultTopK, r.opts.TopK)
	assert.Equal(t, DefaultSearchTimeout, r.opts.SearchTimeout)
	assert.Equal(t, DefaultParallelism, r.opts.Parallelism)
	assert.Equal(t, DefaultMinVariations, r.opts.MinVariations)
	assert.Equal(t, DefaultMaxVariations, r.opts.MaxVariations)
	assert.Equal(t, DefaultSemanticWeight, r.fuser.SemanticWeight)
	assert.Equal(t, DefaultKeywordWeight, r.fuser.KeywordWeight)
}
