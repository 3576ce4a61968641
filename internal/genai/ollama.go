package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Generation defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llama3.1"

	// DefaultTemperatureExpand is higher to produce diverse paraphrases.
	DefaultTemperatureExpand = 0.7
	// DefaultTemperatureAnswer is lower to keep answers grounded.
	DefaultTemperatureAnswer = 0.3

	DefaultMaxTokens = 2048
	DefaultTimeout   = 120 * time.Second
)

// NoAnswerText is the canned response when the retrieved context does
// not support an answer. The answer prompt instructs the model to emit
// it verbatim, and the pipeline returns it directly when retrieval
// comes back empty.
const NoAnswerText = "I cannot answer this question based on the provided documents"

// OllamaOptions configures the Ollama generator.
type OllamaOptions struct {
	// Host is the Ollama API endpoint (default: DefaultOllamaHost).
	Host string

	// Model is the generation model name (default: DefaultOllamaModel).
	Model string

	// TemperatureExpand is the sampling temperature for query expansion.
	TemperatureExpand float64

	// TemperatureAnswer is the sampling temperature for answer generation.
	TemperatureAnswer float64

	// MaxTokens caps the generated output length (default: DefaultMaxTokens).
	MaxTokens int

	// Timeout bounds each generation request (default: DefaultTimeout).
	Timeout time.Duration
}

// OllamaGenerator generates text via Ollama's /api/generate endpoint.
type OllamaGenerator struct {
	client    *http.Client
	transport *http.Transport
	options   OllamaOptions

	mu     sync.RWMutex
	closed bool
}

var _ Generator = (*OllamaGenerator)(nil)

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// NewOllamaGenerator creates an Ollama-backed generator.
func NewOllamaGenerator(opts OllamaOptions) *OllamaGenerator {
	if opts.Host == "" {
		opts.Host = DefaultOllamaHost
	}
	if opts.Model == "" {
		opts.Model = DefaultOllamaModel
	}
	if opts.TemperatureExpand <= 0 {
		opts.TemperatureExpand = DefaultTemperatureExpand
	}
	if opts.TemperatureAnswer <= 0 {
		opts.TemperatureAnswer = DefaultTemperatureAnswer
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        2,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	// No http.Client.Timeout: per-request context timeouts control the
	// deadline, and a static client timeout would override them.
	return &OllamaGenerator{
		client:    &http.Client{Transport: transport},
		transport: transport,
		options:   opts,
	}
}

// Expand generates n alternative phrasings of query, one per line.
// The original query is not included in the result.
func (g *OllamaGenerator) Expand(ctx context.Context, query string, n int) ([]string, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	output, err := g.generate(ctx, expansionPrompt(query, n), g.options.TemperatureExpand)
	if err != nil {
		return nil, fmt.Errorf("expand query: %w", err)
	}
	return parseVariations(output, n), nil
}

// Answer generates a grounded answer to question using only the given
// context passages.
func (g *OllamaGenerator) Answer(ctx context.Context, question, contextText string) (string, error) {
	if err := g.checkOpen(); err != nil {
		return "", err
	}

	output, err := g.generate(ctx, answerPrompt(question, contextText), g.options.TemperatureAnswer)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(output), nil
}

func (g *OllamaGenerator) generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  g.options.Model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": temperature,
			"num_predict": g.options.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.options.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, g.options.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ollama: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return result.Response, nil
}

// ModelName returns the model identifier.
func (g *OllamaGenerator) ModelName() string {
	return g.options.Model
}

// Available checks if the Ollama endpoint responds.
func (g *OllamaGenerator) Available(ctx context.Context) bool {
	if err := g.checkOpen(); err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.options.Host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Close releases HTTP resources.
func (g *OllamaGenerator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	g.transport.CloseIdleConnections()
	return nil
}

func (g *OllamaGenerator) checkOpen() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return ErrGeneratorClosed
	}
	return nil
}
