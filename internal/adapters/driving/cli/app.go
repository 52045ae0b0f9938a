package cli

import (
	"fmt"

	"github.com/corpus-ai/corpus/internal/adapters/driven/embedding/ollama"
	"github.com/corpus-ai/corpus/internal/adapters/driven/embedding/openai"
	"github.com/corpus-ai/corpus/internal/adapters/driven/fetch"
	"github.com/corpus-ai/corpus/internal/adapters/driven/storage/sqlite"
	"github.com/corpus-ai/corpus/internal/cache"
	"github.com/corpus-ai/corpus/internal/chunker"
	"github.com/corpus-ai/corpus/internal/config"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
	"github.com/corpus-ai/corpus/internal/core/services"
	"github.com/corpus-ai/corpus/internal/extractors"
	"github.com/corpus-ai/corpus/internal/quantize"
)

// app bundles the wired components behind the CLI commands.
type app struct {
	cfg      *config.Config
	store    *sqlite.Store
	embedder driven.EmbeddingService

	ingest    *services.IngestService
	retrieval *services.Retrieval
	worker    *services.Worker
}

// newApp wires storage, embedding and services from config.
func newApp(cfg *config.Config) (*app, error) {
	method, err := quantize.ParseMethod(cfg.Embedding.Compression)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(cfg.Storage.DBPath, sqlite.WithCompression(method))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	splitter := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
		chunker.WithMinChunkSize(cfg.Chunking.MinSize),
	)

	processor := services.NewProcessor(services.ProcessorConfig{
		DocumentStore: store.DocumentStore(),
		VectorStore:   store.VectorStore(),
		JobStore:      store.JobStore(),
		Extractors:    extractors.NewDefaultRegistry(),
		Embedder:      embedder,
		Fetcher:       fetch.New(),
		Splitter:      splitter,
		BatchSize:     cfg.Embedding.BatchSize,
	})

	worker := services.NewWorker(services.WorkerConfig{
		JobStore:      store.JobStore(),
		DocumentStore: store.DocumentStore(),
		Processor:     processor,
		PollInterval:  cfg.Worker.PollInterval,
		Concurrency:   cfg.Worker.Concurrency,
		JobTimeout:    cfg.Worker.JobTimeout,
	})

	ingest := services.NewIngestService(store.DocumentStore(), store.JobStore())
	ingest.AttachWorker(worker.Poke())

	queryCache := cache.New[[]float32](
		cache.WithMaxSize[[]float32](cfg.Cache.MaxSize),
		cache.WithTTL[[]float32](cfg.Cache.TTL),
	)
	retrieval := services.NewRetrieval(store.VectorStore(), embedder,
		services.WithContextBudget(cfg.Search.ContextBudget),
		services.WithQueryCache(queryCache),
	)

	return &app{
		cfg:       cfg,
		store:     store,
		embedder:  embedder,
		ingest:    ingest,
		retrieval: retrieval,
		worker:    worker,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	a.worker.Stop()
	_ = a.embedder.Close()
	_ = a.store.Close()
}

// newEmbedder selects the embedding provider from config.
func newEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			RateLimit: cfg.Embedding.RateLimit,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:    cfg.Embedding.APIKey,
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			RateLimit: cfg.Embedding.RateLimit,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}
