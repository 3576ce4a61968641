package search

import (
	"fmt"
	"strings"

	"github.com/docqa/docqa/internal/store"
)

// NoContextText is the context block used when retrieval produced
// nothing to ground an answer on.
const NoContextText = "No relevant context found."

// FormatContext renders retrieved candidates as a numbered context
// block for answer generation. Source numbers are 1-based and match the
// [Source X, Page Y] citation format the answer prompt asks for.
func FormatContext(candidates []store.SearchCandidate) string {
	if len(candidates) == 0 {
		return NoContextText
	}

	parts := make([]string, len(candidates))
	for i, c := range candidates {
		title := c.Metadata.DocumentTitle
		if title == "" {
			title = "Unknown Document"
		}
		parts[i] = fmt.Sprintf("[Source %d - %s, Page %d]\n%s",
			i+1, title, c.Metadata.PageNumber, c.Text)
	}
	return strings.Join(parts, "\n\n")
}
