// Package config loads the corpus daemon configuration from a TOML
// file with environment variable overrides. Secrets (API keys) come
// from the environment only and are never written to disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults applied when neither the file nor the environment sets a
// value.
const (
	DefaultAddr          = ":8080"
	DefaultProvider      = "openai"
	DefaultOpenAIModel   = "text-embedding-3-small"
	DefaultOllamaModel   = "nomic-embed-text"
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultBatchSize     = 64
	DefaultRateLimit     = 10 // requests per second
	DefaultPollInterval  = 2 * time.Second
	DefaultConcurrency   = 2
	DefaultJobTimeout    = 5 * time.Minute
	DefaultCacheSize     = 500
	DefaultCacheTTL      = time.Hour
	DefaultContextBudget = 8000 // characters
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Search    SearchConfig    `toml:"search"`
	Worker    WorkerConfig    `toml:"worker"`
	Cache     CacheConfig     `toml:"cache"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// StorageConfig configures persistence and file intake.
type StorageConfig struct {
	// DBPath is the SQLite database file. Defaults to
	// ~/.corpus/corpus.db.
	DBPath string `toml:"db_path"`

	// DropDir, when set, is watched for new files to ingest.
	DropDir string `toml:"drop_dir"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai" or "ollama".
	Provider string `toml:"provider"`

	// Model is the embedding model name. Empty selects the provider
	// default.
	Model string `toml:"model"`

	// APIKey authenticates against OpenAI. Environment only
	// (OPENAI_API_KEY); the TOML field is ignored on purpose.
	APIKey string `toml:"-"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// BatchSize is the number of texts per embedding request.
	BatchSize int `toml:"batch_size"`

	// RateLimit caps provider requests per second.
	RateLimit int `toml:"rate_limit"`

	// Compression selects vector quantisation: "none", "int8" or
	// "int16".
	Compression string `toml:"compression"`
}

// ChunkingConfig configures the text splitter. Zero values select the
// splitter defaults.
type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
	MinSize int `toml:"min_size"`
}

// SearchConfig configures retrieval defaults.
type SearchConfig struct {
	TopK          int     `toml:"top_k"`
	Threshold     float64 `toml:"threshold"`
	ContextBudget int     `toml:"context_budget"`
}

// WorkerConfig configures the background job worker.
type WorkerConfig struct {
	PollInterval time.Duration `toml:"poll_interval"`
	Concurrency  int           `toml:"concurrency"`

	// JobTimeout is the wall-clock budget per document pipeline run.
	JobTimeout time.Duration `toml:"job_timeout"`
}

// CacheConfig configures the query cache.
type CacheConfig struct {
	MaxSize int           `toml:"max_size"`
	TTL     time.Duration `toml:"ttl"`
}

// Default returns a configuration with all defaults applied.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Addr: DefaultAddr,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(home, ".corpus", "corpus.db"),
		},
		Embedding: EmbeddingConfig{
			Provider:    DefaultProvider,
			BatchSize:   DefaultBatchSize,
			RateLimit:   DefaultRateLimit,
			Compression: "none",
		},
		Search: SearchConfig{
			ContextBudget: DefaultContextBudget,
		},
		Worker: WorkerConfig{
			PollInterval: DefaultPollInterval,
			Concurrency:  DefaultConcurrency,
			JobTimeout:   DefaultJobTimeout,
		},
		Cache: CacheConfig{
			MaxSize: DefaultCacheSize,
			TTL:     DefaultCacheTTL,
		},
	}, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".corpus", "config.toml"), nil
}

// Load reads configuration from path (optional), applies environment
// overrides, and validates the result. A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays CORPUS_* environment variables onto the config.
func (c *Config) applyEnv() {
	envString("CORPUS_ADDR", &c.Server.Addr)
	envString("CORPUS_DB_PATH", &c.Storage.DBPath)
	envString("CORPUS_DROP_DIR", &c.Storage.DropDir)
	envString("CORPUS_EMBEDDING_PROVIDER", &c.Embedding.Provider)
	envString("CORPUS_EMBEDDING_MODEL", &c.Embedding.Model)
	envString("CORPUS_EMBEDDING_BASE_URL", &c.Embedding.BaseURL)
	envString("CORPUS_COMPRESSION", &c.Embedding.Compression)
	envInt("CORPUS_EMBEDDING_BATCH_SIZE", &c.Embedding.BatchSize)
	envInt("CORPUS_EMBEDDING_RATE_LIMIT", &c.Embedding.RateLimit)
	envInt("CORPUS_WORKER_CONCURRENCY", &c.Worker.Concurrency)

	c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}

	switch c.Embedding.Compression {
	case "", "none", "int8", "int16":
	default:
		return fmt.Errorf("unknown compression method %q", c.Embedding.Compression)
	}

	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be positive, got %d", c.Worker.Concurrency)
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("search threshold must be in [0,1], got %g", c.Search.Threshold)
	}
	return nil
}

// ModelName returns the configured model, or the provider default.
func (e EmbeddingConfig) ModelName() string {
	if e.Model != "" {
		return e.Model
	}
	if e.Provider == "ollama" {
		return DefaultOllamaModel
	}
	return DefaultOpenAIModel
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
