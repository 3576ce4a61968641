// Package chunk splits page text into overlapping, size-bounded,
// sentence-respecting segments. Chunks are the unit of everything
// downstream: embedding, indexing, retrieval, and citation.
package chunk

import (
	"strings"
)

// Options configures the chunker behavior.
type Options struct {
	// ChunkSizeWords is the target maximum words per chunk
	// (default: DefaultChunkSizeWords).
	ChunkSizeWords int

	// OverlapWords is the number of trailing words from a sealed chunk
	// re-seeded into the next buffer (default: DefaultOverlapWords).
	// Must be smaller than ChunkSizeWords; callers enforce this.
	OverlapWords int

	// MinChunkWords is the minimum word count for a trailing chunk.
	// Shorter tails are dropped, not merged into the previous chunk
	// (default: DefaultMinChunkWords).
	MinChunkWords int
}

// Chunker implements sentence-aware word-count chunking with overlap.
type Chunker struct {
	options Options
}

// NewChunker creates a chunker with default options.
func NewChunker() *Chunker {
	return NewChunkerWithOptions(Options{})
}

// NewChunkerWithOptions creates a chunker with custom options.
// Zero-valued fields fall back to defaults; MinChunkWords of -1 means
// no minimum (every tail is kept).
func NewChunkerWithOptions(opts Options) *Chunker {
	if opts.ChunkSizeWords == 0 {
		opts.ChunkSizeWords = DefaultChunkSizeWords
	}
	if opts.OverlapWords == 0 {
		opts.OverlapWords = DefaultOverlapWords
	}
	if opts.MinChunkWords == 0 {
		opts.MinChunkWords = DefaultMinChunkWords
	}
	if opts.MinChunkWords < 0 {
		opts.MinChunkWords = 0
	}
	return &Chunker{options: opts}
}

// ChunkText splits text into chunks, attaching md to each.
// Empty or whitespace-only input yields zero chunks. Sentences are
// atomic: one longer than ChunkSizeWords is never split mid-sentence,
// the chunk simply exceeds the target for that one chunk.
func (c *Chunker) ChunkText(text string, md Metadata) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var buffer []string

	seal := func() {
		chunks = append(chunks, Chunk{
			ID:        len(chunks),
			Text:      strings.Join(buffer, " "),
			WordCount: len(buffer),
			Metadata:  md,
		})
	}

	for _, sentence := range sentences {
		words := strings.Fields(sentence)
		if len(buffer) > 0 && len(buffer)+len(words) > c.options.ChunkSizeWords {
			seal()

			// Re-seed with the tail of the sealed buffer for overlap
			// context between consecutive chunks.
			overlap := c.options.OverlapWords
			if overlap > len(buffer) {
				overlap = len(buffer)
			}
			buffer = append([]string(nil), buffer[len(buffer)-overlap:]...)
		}
		buffer = append(buffer, words...)
	}

	// Short tails are dropped, not merged into the previous chunk.
	if len(buffer) >= c.options.MinChunkWords && len(buffer) > 0 {
		seal()
	}

	return chunks
}

// ChunkPages chunks each page independently (chunk boundaries never
// cross a page) and renumbers the resulting chunks sequentially from 0
// in page order. Page number and extraction method come from the page;
// title and filename from docMD.
func (c *Chunker) ChunkPages(pages []Page, docMD Metadata) []Chunk {
	var all []Chunk
	for _, page := range pages {
		md := Metadata{
			PageNumber:       page.Number,
			ExtractionMethod: page.Method,
			DocumentTitle:    docMD.DocumentTitle,
			Filename:         docMD.Filename,
		}
		if md.ExtractionMethod == "" {
			md.ExtractionMethod = MethodUnknown
		}
		all = append(all, c.ChunkText(page.Text, md)...)
	}

	for i := range all {
		all[i].ID = i
	}
	return all
}

// splitSentences splits text on sentence-terminal punctuation (. ! ?)
// followed by whitespace. A best-effort heuristic, not true sentence
// parsing; empty fragments are discarded.
func splitSentences(text string) []string {
	var sentences []string
	var start int

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !isSpace(runes[i+1]) {
			continue
		}

		s := strings.TrimSpace(string(runes[start : i+1]))
		if s != "" {
			sentences = append(sentences, s)
		}
		// Skip the whitespace run after the terminator
		start = i + 1
		for start < len(runes) && isSpace(runes[start]) {
			start++
		}
		i = start - 1
	}

	if start < len(runes) {
		s := strings.TrimSpace(string(runes[start:]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}
