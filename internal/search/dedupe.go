package search

import (
	"unicode/utf8"

	"github.com/docqa/docqa/internal/store"
)

// fingerprintLength is the number of leading characters of a
// candidate's text used as its duplicate fingerprint.
const fingerprintLength = 100

// Dedupe collapses candidates whose text shares the same leading
// characters. The fingerprint is an exact prefix match, not normalized
// or hashed, so near-duplicates with differing prefixes survive. Order
// is preserved and the first occurrence wins; the result is idempotent
// under repeated application.
func Dedupe(candidates []store.SearchCandidate) []store.SearchCandidate {
	if len(candidates) == 0 {
		return candidates
	}
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0:0]
	for _, c := range candidates {
		fp := fingerprint(c.Text)
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, c)
	}
	return out
}

// dedupeScored applies the same fingerprint policy to scored
// candidates.
func dedupeScored(candidates []ScoredCandidate) []ScoredCandidate {
	if len(candidates) == 0 {
		return candidates
	}
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0:0]
	for _, sc := range candidates {
		fp := fingerprint(sc.Candidate.Text)
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, sc)
	}
	return out
}

// fingerprint returns the first fingerprintLength characters of text,
// or the whole text when shorter.
func fingerprint(text string) string {
	i := 0
	for n := 0; n < fingerprintLength && i < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return text[:i]
}
