package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, DefaultBatchSize, cfg.Embedding.BatchSize)
	assert.Equal(t, "none", cfg.Embedding.Compression)
	assert.Equal(t, DefaultPollInterval, cfg.Worker.PollInterval)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.toml")

	content := `
[server]
addr = ":9090"
allowed_origins = ["https://app.example.com"]

[storage]
db_path = "/tmp/test.db"
drop_dir = "/tmp/drop"

[embedding]
provider = "ollama"
model = "all-minilm"
compression = "int8"
rate_limit = 3

[search]
top_k = 8
threshold = 0.5

[worker]
concurrency = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.DBPath)
	assert.Equal(t, "/tmp/drop", cfg.Storage.DropDir)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "all-minilm", cfg.Embedding.ModelName())
	assert.Equal(t, "int8", cfg.Embedding.Compression)
	assert.Equal(t, 3, cfg.Embedding.RateLimit)
	assert.Equal(t, 8, cfg.Search.TopK)
	assert.Equal(t, 0.5, cfg.Search.Threshold)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CORPUS_ADDR", ":7777")
	t.Setenv("CORPUS_EMBEDDING_PROVIDER", "ollama")
	t.Setenv("CORPUS_EMBEDDING_RATE_LIMIT", "5")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 5, cfg.Embedding.RateLimit)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\naddr = \":9090\"\n"), 0600))
	t.Setenv("CORPUS_ADDR", ":6060")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Default()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Embedding.Provider = "acme"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Embedding.Compression = "gzip"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Embedding.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Worker.Concurrency = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Search.Threshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestModelName_Defaults(t *testing.T) {
	assert.Equal(t, DefaultOpenAIModel, EmbeddingConfig{Provider: "openai"}.ModelName())
	assert.Equal(t, DefaultOllamaModel, EmbeddingConfig{Provider: "ollama"}.ModelName())
	assert.Equal(t, "custom", EmbeddingConfig{Provider: "openai", Model: "custom"}.ModelName())
}

func TestDefault_DBPathUnderHome(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".corpus", "corpus.db"), cfg.Storage.DBPath)
}
