// Package search implements the retrieval core: multi-query fan-out,
// rank-normalized score fusion of semantic and lexical result lists,
// prefix deduplication, and similarity-threshold filtering.
package search

import (
	"sort"

	"github.com/docqa/docqa/internal/store"
)

// Fusion weight defaults.
const (
	DefaultSemanticWeight = 0.7
	DefaultKeywordWeight  = 0.3
)

// ScoredCandidate pairs a search candidate with its fused score. It is
// transient: it exists only within one retrieval call.
type ScoredCandidate struct {
	Candidate store.SearchCandidate
	Score     float64
}

// Fuser merges independently-ranked candidate lists by weighted rank
// normalization. Raw distances from different signals are not
// comparable, so fusion works on list positions only: the candidate at
// 0-based position i in a list of N scores 1 - i/N, scaled by the
// list's weight. A candidate absent from a list contributes nothing
// from it.
type Fuser struct {
	SemanticWeight float64
	KeywordWeight  float64
}

// NewFuser creates a fuser. Non-positive weights fall back to the
// defaults.
func NewFuser(semanticWeight, keywordWeight float64) *Fuser {
	if semanticWeight <= 0 {
		semanticWeight = DefaultSemanticWeight
	}
	if keywordWeight <= 0 {
		keywordWeight = DefaultKeywordWeight
	}
	return &Fuser{SemanticWeight: semanticWeight, KeywordWeight: keywordWeight}
}

// Fuse merges a semantic and a lexical result list into one list ranked
// by combined score, ties broken by first-insertion order.
func (f *Fuser) Fuse(semantic, lexical []store.SearchCandidate) []ScoredCandidate {
	acc := newAccumulator()
	acc.addRanked(semantic, f.SemanticWeight)
	acc.addRanked(lexical, f.KeywordWeight)
	return acc.ranked()
}

// accumulator merges candidate contributions by id, in first-insertion
// order. Contributions from the same id across lists and query variants
// add up; the instance with the highest similarity is the one kept for
// citation display.
type accumulator struct {
	index map[string]int
	items []ScoredCandidate
}

func newAccumulator() *accumulator {
	return &accumulator{index: make(map[string]int)}
}

func (a *accumulator) add(c store.SearchCandidate, score float64) {
	if j, ok := a.index[c.ID]; ok {
		a.items[j].Score += score
		if c.Similarity > a.items[j].Candidate.Similarity {
			a.items[j].Candidate = c
		}
		return
	}
	a.index[c.ID] = len(a.items)
	a.items = append(a.items, ScoredCandidate{Candidate: c, Score: score})
}

// addRanked accumulates a ranked list with rank-normalized scores.
func (a *accumulator) addRanked(list []store.SearchCandidate, weight float64) {
	n := len(list)
	for i, c := range list {
		a.add(c, (1-float64(i)/float64(n))*weight)
	}
}

// addScored accumulates an already-fused per-variant list.
func (a *accumulator) addScored(list []ScoredCandidate) {
	for _, sc := range list {
		a.add(sc.Candidate, sc.Score)
	}
}

// ordered returns the accumulated candidates in first-insertion order.
func (a *accumulator) ordered() []ScoredCandidate {
	out := make([]ScoredCandidate, len(a.items))
	copy(out, a.items)
	return out
}

// ranked returns the accumulated candidates sorted by score descending,
// ties broken by first-insertion order.
func (a *accumulator) ranked() []ScoredCandidate {
	out := a.ordered()
	sortByScore(out)
	return out
}

func sortByScore(list []ScoredCandidate) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Score > list[j].Score
	})
}

func sortBySimilarity(list []store.SearchCandidate) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Similarity > list[j].Similarity
	})
}
