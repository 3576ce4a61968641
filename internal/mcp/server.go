// Package mcp exposes the question-answering pipeline to MCP clients
// over stdio: ask, search, and stats tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docqa/docqa/internal/pipeline"
	"github.com/docqa/docqa/internal/store"
	"github.com/docqa/docqa/pkg/version"
)

// QA is the pipeline surface the server needs.
type QA interface {
	Ask(ctx context.Context, question string, topK int) (*pipeline.Answer, error)
	Search(ctx context.Context, query string, topK int) ([]store.SearchCandidate, error)
	Stats(ctx context.Context) (*pipeline.Stats, error)
}

// Server is the MCP server bridging AI clients with the document
// question-answering pipeline.
type Server struct {
	mcp    *mcp.Server
	qa     QA
	logger *slog.Logger
}

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the natural-language question to answer"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"maximum number of supporting passages, default 8"`
}

// AskOutput defines the output schema for the ask tool.
type AskOutput struct {
	Answer     string           `json:"answer" jsonschema:"the generated answer with inline citations"`
	Citations  []CitationOutput `json:"citations" jsonschema:"the sources grounding the answer"`
	NumSources int              `json:"num_sources" jsonschema:"number of supporting passages used"`
}

// CitationOutput is one source reference.
type CitationOutput struct {
	SourceNumber  int     `json:"source_number" jsonschema:"1-based source number matching inline citations"`
	DocumentTitle string  `json:"document_title" jsonschema:"title of the source document"`
	PageNumber    int     `json:"page_number" jsonschema:"page the passage came from"`
	Filename      string  `json:"filename" jsonschema:"source file name"`
	Similarity    float64 `json:"similarity" jsonschema:"semantic similarity of the passage to the question"`
}

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to execute"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 8"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"list of retrieved passages"`
}

// SearchResultOutput is one retrieved passage.
type SearchResultOutput struct {
	Text          string  `json:"text" jsonschema:"the passage text"`
	DocumentTitle string  `json:"document_title" jsonschema:"title of the source document"`
	PageNumber    int     `json:"page_number" jsonschema:"page the passage came from"`
	Filename      string  `json:"filename" jsonschema:"source file name"`
	Similarity    float64 `json:"similarity" jsonschema:"semantic similarity to the query"`
}

// StatsInput defines the input schema for the stats tool (no parameters).
type StatsInput struct{}

// StatsOutput defines the output schema for the stats tool.
type StatsOutput struct {
	TotalChunks int `json:"total_chunks" jsonschema:"number of indexed chunks"`
}

// NewServer creates the MCP server and registers its tools.
func NewServer(qa QA) (*Server, error) {
	if qa == nil {
		return nil, errors.New("pipeline is required")
	}

	s := &Server{
		qa:     qa,
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "docqa",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documents. Returns a grounded answer with [Source X, Page Y] citations and the supporting passages.",
	}, s.askHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Retrieve the most relevant document passages for a query without generating an answer. Use this to inspect what the index knows about a topic.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "stats",
		Description: "Report how many chunks are indexed. Use this to verify documents were ingested before asking questions.",
	}, s.statsHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", 3))
}

func (s *Server) askHandler(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
	*mcp.CallToolResult,
	AskOutput,
	error,
) {
	if input.Question == "" {
		return nil, AskOutput{}, errors.New("question parameter is required")
	}

	answer, err := s.qa.Ask(ctx, input.Question, input.TopK)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:     answer.Answer,
		Citations:  make([]CitationOutput, 0, len(answer.Citations)),
		NumSources: answer.NumSources,
	}
	for _, c := range answer.Citations {
		output.Citations = append(output.Citations, CitationOutput{
			SourceNumber:  c.SourceNumber,
			DocumentTitle: c.DocumentTitle,
			PageNumber:    c.PageNumber,
			Filename:      c.Filename,
			Similarity:    c.Similarity,
		})
	}
	return nil, output, nil
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, errors.New("query parameter is required")
	}

	candidates, err := s.qa.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{Results: make([]SearchResultOutput, 0, len(candidates))}
	for _, c := range candidates {
		output.Results = append(output.Results, SearchResultOutput{
			Text:          c.Text,
			DocumentTitle: c.Metadata.DocumentTitle,
			PageNumber:    c.Metadata.PageNumber,
			Filename:      c.Metadata.Filename,
			Similarity:    c.Similarity,
		})
	}
	return nil, output, nil
}

func (s *Server) statsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (
	*mcp.CallToolResult,
	StatsOutput,
	error,
) {
	stats, err := s.qa.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput{TotalChunks: stats.TotalChunks}, nil
}

// Serve runs the server over stdio until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}
