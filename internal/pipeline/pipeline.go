// Package pipeline wires extraction, chunking, embedding, indexing,
// retrieval and generation into the document question-answering
// surface used by the CLI and the MCP server.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docqa/docqa/internal/chunk"
	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/embed"
	"github.com/docqa/docqa/internal/extract"
	"github.com/docqa/docqa/internal/genai"
	"github.com/docqa/docqa/internal/search"
	"github.com/docqa/docqa/internal/store"
)

// IngestStats summarizes an ingestion run.
type IngestStats struct {
	Documents  int `json:"documents"`
	Pages      int `json:"pages"`
	Chunks     int `json:"chunks"`
	Characters int `json:"characters"`
}

// Citation points an answer back at a retrieved source.
type Citation struct {
	SourceNumber  int     `json:"source_number"`
	DocumentTitle string  `json:"document_title"`
	PageNumber    int     `json:"page_number"`
	Filename      string  `json:"filename"`
	Similarity    float64 `json:"similarity"`
}

// Answer is the result of a question.
type Answer struct {
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	NumSources int        `json:"num_sources"`
}

// Stats reports index contents.
type Stats struct {
	TotalChunks int `json:"total_chunks"`
}

// Pipeline is the question-answering facade over the index.
type Pipeline struct {
	extractor extract.Source
	chunker   *chunk.Chunker
	embedder  embed.Embedder
	index     store.DocumentIndex
	generator genai.Generator
	retriever *search.Retriever
}

// New assembles a pipeline from its collaborators. generator may be
// nil, which disables query expansion and answer generation (Ask
// returns the no-answer text with the retrieved citations).
func New(cfg *config.Config, extractor extract.Source, embedder embed.Embedder, index store.DocumentIndex, generator genai.Generator) *Pipeline {
	chunker := chunk.NewChunkerWithOptions(chunk.Options{
		ChunkSizeWords: cfg.Chunking.ChunkSizeWords,
		OverlapWords:   cfg.Chunking.OverlapWords,
		MinChunkWords:  cfg.Chunking.MinChunkSizeWords,
	})
	retriever := search.NewRetriever(index, embedder, generator, search.Options{
		TopK:                cfg.Retrieval.TopK,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		Hybrid:              cfg.Retrieval.UseHybridSearch,
		SemanticWeight:      cfg.Retrieval.SemanticWeight,
		KeywordWeight:       cfg.Retrieval.KeywordWeight,
		SearchTimeout:       cfg.Retrieval.SearchTimeout,
		Parallelism:         cfg.Retrieval.Parallelism,
		ExpandQueries:       cfg.Expansion.Enabled,
		MinVariations:       cfg.Expansion.MinVariations,
		MaxVariations:       cfg.Expansion.MaxVariations,
	})
	return &Pipeline{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		generator: generator,
		retriever: retriever,
	}
}

// Open assembles a pipeline with the shipped collaborators: PDF
// extraction, cached Ollama embeddings degraded to zero vectors at this
// boundary, the on-disk hybrid index, and Ollama generation.
func Open(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	ollama, err := embed.NewOllamaEmbedder(ctx, embed.OllamaOptions{
		Host:       cfg.Embeddings.OllamaHost,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("connect embedding model: %w", err)
	}
	embedder := embed.NewDegradeEmbedder(embed.NewCachedEmbedder(ollama, cfg.Embeddings.CacheSize))

	index, err := store.Open(cfg.IndexDir(), ollama.Dimensions())
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}

	generator := genai.NewOllamaGenerator(genai.OllamaOptions{
		Host:              cfg.Embeddings.OllamaHost,
		Model:             cfg.Generation.Model,
		TemperatureExpand: cfg.Generation.TemperatureExpand,
		TemperatureAnswer: cfg.Generation.TemperatureAnswer,
		MaxTokens:         cfg.Generation.MaxTokens,
	})

	return New(cfg, extract.NewPDFExtractor(nil), embedder, index, generator), nil
}

// ProcessDocument ingests one document: extract, chunk, embed, index.
func (p *Pipeline) ProcessDocument(ctx context.Context, path string) (*IngestStats, error) {
	doc, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	chunks := p.chunker.ChunkPages(doc.Pages, chunk.Metadata{
		DocumentTitle: doc.Metadata.Title,
		Filename:      doc.Metadata.Filename,
	})
	if len(chunks) == 0 {
		slog.Warn("document produced no chunks", slog.String("file", path))
		return &IngestStats{Documents: 1, Pages: doc.Stats.Pages}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	if err := p.index.Upsert(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	if err := p.index.Save(); err != nil {
		slog.Warn("index save failed", slog.String("error", err.Error()))
	}

	slog.Info("document ingested",
		slog.String("file", path),
		slog.Int("pages", doc.Stats.Pages),
		slog.Int("chunks", len(chunks)))

	return &IngestStats{
		Documents:  1,
		Pages:      doc.Stats.Pages,
		Chunks:     len(chunks),
		Characters: doc.Stats.Characters,
	}, nil
}

// ProcessDirectory ingests every PDF under dir. Per-file failures are
// logged and skipped; the sweep completes with whatever succeeded.
func (p *Pipeline) ProcessDirectory(ctx context.Context, dir string) (*IngestStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	total := &IngestStats{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}

		stats, err := p.ProcessDocument(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Warn("document ingestion failed",
				slog.String("file", entry.Name()),
				slog.String("error", err.Error()))
			continue
		}
		total.Documents += stats.Documents
		total.Pages += stats.Pages
		total.Chunks += stats.Chunks
		total.Characters += stats.Characters
	}
	return total, nil
}

// Ask answers a question grounded in retrieved passages. Zero retrieved
// passages is a valid outcome: the canned no-answer text is returned
// with no citations. A generation failure degrades the same way: the
// error is logged and returned as the answer text with no citations.
func (p *Pipeline) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	candidates, err := p.retriever.RetrieveTopK(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Answer{Question: question, Answer: genai.NoAnswerText}, nil
	}

	answer := genai.NoAnswerText
	if p.generator != nil {
		answer, err = p.generator.Answer(ctx, question, search.FormatContext(candidates))
		if err != nil {
			slog.Warn("answer generation failed",
				slog.String("error", err.Error()))
			return &Answer{
				Question: question,
				Answer:   fmt.Sprintf("Error generating answer: %v", err),
			}, nil
		}
	}

	citations := make([]Citation, len(candidates))
	for i, c := range candidates {
		citations[i] = Citation{
			SourceNumber:  i + 1,
			DocumentTitle: c.Metadata.DocumentTitle,
			PageNumber:    c.Metadata.PageNumber,
			Filename:      c.Metadata.Filename,
			Similarity:    c.Similarity,
		}
	}
	return &Answer{
		Question:   question,
		Answer:     answer,
		Citations:  citations,
		NumSources: len(citations),
	}, nil
}

// Search runs retrieval only, without answer generation.
func (p *Pipeline) Search(ctx context.Context, query string, topK int) ([]store.SearchCandidate, error) {
	return p.retriever.RetrieveTopK(ctx, query, topK)
}

// Stats reports the index contents.
func (p *Pipeline) Stats(ctx context.Context) (*Stats, error) {
	count, err := p.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	return &Stats{TotalChunks: count}, nil
}

// Clear removes all indexed documents.
func (p *Pipeline) Clear(ctx context.Context) error {
	return p.index.Clear(ctx)
}

// Close releases the pipeline's resources.
func (p *Pipeline) Close() error {
	var firstErr error
	if err := p.index.Close(); err != nil {
		firstErr = err
	}
	if err := p.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if p.generator != nil {
		if err := p.generator.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
