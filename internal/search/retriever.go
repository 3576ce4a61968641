package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docqa/docqa/internal/embed"
	"github.com/docqa/docqa/internal/genai"
	"github.com/docqa/docqa/internal/store"
)

// Retrieval defaults.
const (
	DefaultTopK                = 8
	DefaultSimilarityThreshold = 0.3
	DefaultSearchTimeout       = 10 * time.Second
	DefaultParallelism         = 4
	DefaultMinVariations       = 3
	DefaultMaxVariations       = 7
)

// Options configures a Retriever.
type Options struct {
	// TopK is the number of candidates returned (default: DefaultTopK).
	TopK int

	// SimilarityThreshold drops candidates below it. Candidates with no
	// similarity defined are treated as 0.
	SimilarityThreshold float64

	// Hybrid enables per-variant lexical search fused with the semantic
	// results. When false only the semantic list is used and candidates
	// rank by similarity.
	Hybrid bool

	// SemanticWeight and KeywordWeight are the fusion weights
	// (defaults: DefaultSemanticWeight, DefaultKeywordWeight).
	SemanticWeight float64
	KeywordWeight  float64

	// SearchTimeout bounds each variant's search. A timed-out variant
	// contributes an empty list (default: DefaultSearchTimeout).
	SearchTimeout time.Duration

	// Parallelism bounds concurrent variant searches (default:
	// DefaultParallelism).
	Parallelism int

	// ExpandQueries enables multi-query fan-out through the generator.
	ExpandQueries bool

	// MinVariations and MaxVariations clamp the variant count, original
	// query included (defaults: DefaultMinVariations,
	// DefaultMaxVariations).
	MinVariations int
	MaxVariations int
}

// Retriever runs hybrid retrieval: query expansion, bounded parallel
// per-variant searches, fusion, deduplication, threshold filtering and
// truncation. A retrieval call owns its working set exclusively;
// nothing is cached across calls.
type Retriever struct {
	index     store.DocumentIndex
	embedder  embed.Embedder
	generator genai.Generator
	fuser     *Fuser
	opts      Options
}

// NewRetriever creates a retriever. generator may be nil, which
// disables query expansion regardless of options.
func NewRetriever(index store.DocumentIndex, embedder embed.Embedder, generator genai.Generator, opts Options) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.MinVariations <= 0 {
		opts.MinVariations = DefaultMinVariations
	}
	if opts.MaxVariations <= 0 {
		opts.MaxVariations = DefaultMaxVariations
	}
	return &Retriever{
		index:     index,
		embedder:  embedder,
		generator: generator,
		fuser:     NewFuser(opts.SemanticWeight, opts.KeywordWeight),
		opts:      opts,
	}
}

// Retrieve runs retrieval with the configured TopK.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]store.SearchCandidate, error) {
	return r.RetrieveTopK(ctx, query, r.opts.TopK)
}

// RetrieveTopK runs retrieval truncated to topK candidates. An empty
// result is a valid, non-error outcome.
func (r *Retriever) RetrieveTopK(ctx context.Context, query string, topK int) ([]store.SearchCandidate, error) {
	if topK <= 0 {
		topK = r.opts.TopK
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	variants := r.expandQuery(ctx, query)

	perVariant := make([][]ScoredCandidate, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallelism)

	for i, variant := range variants {
		g.Go(func() error {
			vctx, cancel := context.WithTimeout(gctx, r.opts.SearchTimeout)
			defer cancel()

			results, err := r.searchVariant(vctx, variant, topK)
			if err != nil {
				// Cancellation of the whole call aborts; anything else
				// degrades this variant to an empty contribution.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("query variant search failed",
					slog.Int("variant", i),
					slog.String("error", err.Error()))
				return nil
			}
			perVariant[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if r.opts.Hybrid {
		return r.mergeHybrid(perVariant, topK), nil
	}
	return r.mergeSemantic(perVariant, topK), nil
}

// searchVariant runs one variant's searches. In hybrid mode the
// semantic and lexical lists are fused immediately; otherwise the
// semantic list carries its similarity as the score.
func (r *Retriever) searchVariant(ctx context.Context, query string, k int) ([]ScoredCandidate, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	semantic, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	if !r.opts.Hybrid {
		scored := make([]ScoredCandidate, len(semantic))
		for i, c := range semantic {
			scored[i] = ScoredCandidate{Candidate: c, Score: c.Similarity}
		}
		return scored, nil
	}

	lexical, err := r.index.LexicalSearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	// Each variant contributes at most k fused candidates to the pool,
	// so a variant's deep tail cannot outvote another's top ranks.
	fused := r.fuser.Fuse(semantic, lexical)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}

// mergeHybrid accumulates per-variant fused lists into one pool, then
// dedupes, filters and ranks by combined score.
func (r *Retriever) mergeHybrid(perVariant [][]ScoredCandidate, topK int) []store.SearchCandidate {
	acc := newAccumulator()
	for _, list := range perVariant {
		acc.addScored(list)
	}

	pool := dedupeScored(acc.ordered())
	filtered := pool[:0:0]
	for _, sc := range pool {
		if sc.Candidate.Similarity >= r.opts.SimilarityThreshold {
			filtered = append(filtered, sc)
		}
	}
	sortByScore(filtered)

	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	out := make([]store.SearchCandidate, len(filtered))
	for i, sc := range filtered {
		out[i] = sc.Candidate
	}
	return out
}

// mergeSemantic pools per-variant semantic lists, then dedupes, filters
// and ranks by similarity.
func (r *Retriever) mergeSemantic(perVariant [][]ScoredCandidate, topK int) []store.SearchCandidate {
	var pool []store.SearchCandidate
	for _, list := range perVariant {
		for _, sc := range list {
			pool = append(pool, sc.Candidate)
		}
	}

	pool = Dedupe(pool)
	filtered := pool[:0:0]
	for _, c := range pool {
		if c.Similarity >= r.opts.SimilarityThreshold {
			filtered = append(filtered, c)
		}
	}
	sortBySimilarity(filtered)

	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered
}

// expandQuery produces the query variants, original first. Expansion
// failure falls back to the unexpanded query.
func (r *Retriever) expandQuery(ctx context.Context, query string) []string {
	if !r.opts.ExpandQueries || r.generator == nil {
		return []string{query}
	}

	n := r.opts.MaxVariations
	if n < r.opts.MinVariations {
		n = r.opts.MinVariations
	}
	if n <= 1 {
		return []string{query}
	}

	alternatives, err := r.generator.Expand(ctx, query, n-1)
	if err != nil {
		slog.Warn("query expansion failed, using original query",
			slog.String("error", err.Error()))
		return []string{query}
	}

	variants := make([]string, 0, len(alternatives)+1)
	variants = append(variants, query)
	for _, alt := range alternatives {
		alt = strings.TrimSpace(alt)
		if alt == "" || alt == query {
			continue
		}
		variants = append(variants, alt)
		if len(variants) == n {
			break
		}
	}
	return variants
}
