// Package config provides configuration loading, defaults, and validation
// for the docqa pipeline. Configuration is an explicit value constructed
// once at startup and threaded through component constructors; there are
// no package-level singletons.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the config file name looked up in the data directory.
const DefaultConfigName = "config.yaml"

// Config is the complete docqa configuration.
type Config struct {
	// DataDir is where the index, metadata store, and logs live.
	DataDir string `yaml:"data_dir"`

	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Expansion  ExpansionConfig  `yaml:"query_expansion"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChunkingConfig configures the text chunker.
type ChunkingConfig struct {
	// ChunkSizeWords is the target maximum words per chunk.
	ChunkSizeWords int `yaml:"chunk_size_words"`

	// OverlapWords is the number of trailing words re-seeded into the
	// next chunk for context continuity. Must be < ChunkSizeWords.
	OverlapWords int `yaml:"overlap_words"`

	// MinChunkSizeWords is the minimum size for a trailing chunk.
	// Shorter tails are dropped, not merged into the previous chunk.
	MinChunkSizeWords int `yaml:"min_chunk_size_words"`
}

// RetrievalConfig configures hybrid retrieval.
type RetrievalConfig struct {
	// TopK is the default number of candidates returned by a retrieval.
	TopK int `yaml:"top_k"`

	// SimilarityThreshold drops candidates below this similarity (0-1).
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// UseHybridSearch enables lexical search alongside semantic search,
	// fused by rank-normalized weighted scoring.
	UseHybridSearch bool `yaml:"use_hybrid_search"`

	// SemanticWeight is the fusion weight for the semantic (vector) signal.
	SemanticWeight float64 `yaml:"semantic_weight"`

	// KeywordWeight is the fusion weight for the lexical (keyword) signal.
	KeywordWeight float64 `yaml:"keyword_weight"`

	// SearchTimeout bounds each per-variant search. A timed-out variant
	// contributes an empty result list instead of failing the retrieval.
	SearchTimeout time.Duration `yaml:"search_timeout"`

	// Parallelism bounds concurrent per-variant searches.
	Parallelism int `yaml:"parallelism"`
}

// ExpansionConfig configures LLM query expansion.
type ExpansionConfig struct {
	// Enabled turns query expansion on. When disabled or when expansion
	// fails, retrieval proceeds with the single original query.
	Enabled bool `yaml:"enabled"`

	// MinVariations and MaxVariations clamp the number of query variants
	// (including the original) requested from the generator.
	MinVariations int `yaml:"min_variations"`
	MaxVariations int `yaml:"max_variations"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// OllamaHost is the Ollama API endpoint. Empty uses the default
	// http://localhost:11434; DOCQA_OLLAMA_HOST overrides both.
	OllamaHost string `yaml:"ollama_host"`

	// Model is the embedding model name.
	Model string `yaml:"model"`

	// Dimensions is the embedding dimension. 0 auto-detects from the model.
	Dimensions int `yaml:"dimensions"`

	// BatchSize is texts per embedding request.
	BatchSize int `yaml:"batch_size"`

	// CacheSize is the number of query embeddings kept in the LRU cache.
	CacheSize int `yaml:"cache_size"`
}

// GenerationConfig configures the answer/expansion generator.
type GenerationConfig struct {
	// Model is the generation model name.
	Model string `yaml:"model"`

	// TemperatureExpand is the sampling temperature for query expansion.
	TemperatureExpand float64 `yaml:"temperature_expand"`

	// TemperatureAnswer is the sampling temperature for answer generation.
	TemperatureAnswer float64 `yaml:"temperature_answer"`

	// MaxTokens caps generated output length.
	MaxTokens int `yaml:"max_tokens"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level"`

	// File is the log file path. Empty logs to stderr only.
	File string `yaml:"file"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		DataDir: ".docqa",
		Chunking: ChunkingConfig{
			ChunkSizeWords:    600,
			OverlapWords:      75,
			MinChunkSizeWords: 100,
		},
		Retrieval: RetrievalConfig{
			TopK:                8,
			SimilarityThreshold: 0.3,
			UseHybridSearch:     true,
			SemanticWeight:      0.7,
			KeywordWeight:       0.3,
			SearchTimeout:       10 * time.Second,
			Parallelism:         4,
		},
		Expansion: ExpansionConfig{
			Enabled:       true,
			MinVariations: 3,
			MaxVariations: 7,
		},
		Embeddings: EmbeddingsConfig{
			OllamaHost: "",
			Model:      "nomic-embed-text",
			Dimensions: 0,
			BatchSize:  32,
			CacheSize:  1000,
		},
		Generation: GenerationConfig{
			Model:             "llama3.1",
			TemperatureExpand: 0.7,
			TemperatureAnswer: 0.3,
			MaxTokens:         2048,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load reads a config file and merges it over defaults.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.applyEnv()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnv applies environment variable overrides for external endpoints.
func (c *Config) applyEnv() {
	if host := os.Getenv("DOCQA_OLLAMA_HOST"); host != "" {
		c.Embeddings.OllamaHost = host
	}
}

// Validate checks configuration invariants. Violations are configuration
// errors: fatal at startup, never retried.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSizeWords <= 0 {
		return fmt.Errorf("chunking.chunk_size_words must be positive, got %d", c.Chunking.ChunkSizeWords)
	}
	if c.Chunking.OverlapWords <= 0 {
		return fmt.Errorf("chunking.overlap_words must be positive, got %d", c.Chunking.OverlapWords)
	}
	if c.Chunking.MinChunkSizeWords <= 0 {
		return fmt.Errorf("chunking.min_chunk_size_words must be positive, got %d", c.Chunking.MinChunkSizeWords)
	}
	if c.Chunking.OverlapWords >= c.Chunking.ChunkSizeWords {
		return fmt.Errorf("chunking.overlap_words (%d) must be smaller than chunk_size_words (%d)",
			c.Chunking.OverlapWords, c.Chunking.ChunkSizeWords)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("retrieval.similarity_threshold must be in [0,1], got %g", c.Retrieval.SimilarityThreshold)
	}
	if c.Retrieval.SemanticWeight < 0 || c.Retrieval.SemanticWeight > 1 {
		return fmt.Errorf("retrieval.semantic_weight must be in [0,1], got %g", c.Retrieval.SemanticWeight)
	}
	if c.Retrieval.KeywordWeight < 0 || c.Retrieval.KeywordWeight > 1 {
		return fmt.Errorf("retrieval.keyword_weight must be in [0,1], got %g", c.Retrieval.KeywordWeight)
	}
	if c.Retrieval.Parallelism <= 0 {
		return fmt.Errorf("retrieval.parallelism must be positive, got %d", c.Retrieval.Parallelism)
	}
	if c.Retrieval.SearchTimeout <= 0 {
		return fmt.Errorf("retrieval.search_timeout must be positive, got %s", c.Retrieval.SearchTimeout)
	}
	if c.Expansion.MinVariations <= 0 {
		return fmt.Errorf("query_expansion.min_variations must be positive, got %d", c.Expansion.MinVariations)
	}
	if c.Expansion.MaxVariations < c.Expansion.MinVariations {
		return fmt.Errorf("query_expansion.max_variations (%d) must be >= min_variations (%d)",
			c.Expansion.MaxVariations, c.Expansion.MinVariations)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	return nil
}

// ConfigPath returns the config file path inside the data directory.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.DataDir, DefaultConfigName)
}

// IndexDir returns the directory holding index files.
func (c *Config) IndexDir() string {
	return filepath.Join(c.DataDir, "index")
}
