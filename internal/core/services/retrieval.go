package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/corpus-ai/corpus/internal/cache"
	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
	"github.com/corpus-ai/corpus/internal/core/ports/driving"
	"github.com/corpus-ai/corpus/internal/logger"
)

// DefaultContextBudget caps the assembled context block in characters.
const DefaultContextBudget = 8000

// Retrieval answers query-time requests: it embeds queries (with a
// short-lived cache in front of the provider), runs scoped similarity
// search and assembles bounded context blocks.
type Retrieval struct {
	vectors  driven.VectorStore
	embedder driven.EmbeddingService
	queries  *cache.Cache[[]float32]
	budget   int
}

var _ driving.RetrievalService = (*Retrieval)(nil)

// RetrievalOption configures the retrieval service.
type RetrievalOption func(*Retrieval)

// WithContextBudget caps assembled context length in characters.
func WithContextBudget(budget int) RetrievalOption {
	return func(r *Retrieval) {
		if budget > 0 {
			r.budget = budget
		}
	}
}

// WithQueryCache replaces the default query-embedding cache.
func WithQueryCache(c *cache.Cache[[]float32]) RetrievalOption {
	return func(r *Retrieval) {
		if c != nil {
			r.queries = c
		}
	}
}

// NewRetrieval creates the retrieval service.
func NewRetrieval(vectors driven.VectorStore, embedder driven.EmbeddingService, opts ...RetrievalOption) *Retrieval {
	r := &Retrieval{
		vectors:  vectors,
		embedder: embedder,
		queries:  cache.New[[]float32](),
		budget:   DefaultContextBudget,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search embeds the query text and runs a scoped similarity search.
func (r *Retrieval) Search(ctx context.Context, query, ownerID string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	vector, err := r.embedQuery(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return r.SearchVector(ctx, vector, ownerID, opts)
}

// SearchVector runs a similarity search with a caller-supplied vector.
func (r *Retrieval) SearchVector(ctx context.Context, vector []float32, ownerID string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = domain.DefaultTopK
	}
	if opts.Threshold == 0 {
		opts.Threshold = domain.DefaultSimilarityThreshold
	}

	results, err := r.vectors.Search(ctx, vector, ownerID, opts)
	if err != nil {
		return nil, err
	}

	logger.Debug("search for owner %s: %d results", ownerID, len(results))
	return results, nil
}

// BuildContext retrieves the top chunks and formats them into a bounded
// context block. Chunks that would overflow the budget are dropped from
// the block and from Sources together.
func (r *Retrieval) BuildContext(ctx context.Context, query, ownerID string, opts domain.SearchOptions) (*domain.ContextResult, error) {
	results, err := r.Search(ctx, query, ownerID, opts)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &domain.ContextResult{}, nil
	}

	const separator = "\n\n---\n\n"

	var b strings.Builder
	used := 0
	emitted := 0
	for _, res := range results {
		block := fmt.Sprintf("[Context %d] (Similarity: %.1f%%)\n%s", emitted+1, res.Similarity*100, res.Content)

		cost := len(block)
		if used > 0 {
			cost += len(separator)
		}
		if used+cost > r.budget {
			break
		}

		if used > 0 {
			b.WriteString(separator)
		}
		b.WriteString(block)
		used += cost
		emitted++
	}

	return &domain.ContextResult{
		Context: b.String(),
		Sources: results[:emitted],
	}, nil
}

// embedQuery returns the query embedding, served from cache when the
// same owner asked the same (normalised) question recently.
func (r *Retrieval) embedQuery(ctx context.Context, query, ownerID string) ([]float32, error) {
	key := cache.Key(r.modelKey(ownerID), query)
	if vector, ok := r.queries.Get(key); ok {
		logger.Debug("query embedding cache hit for owner %s", ownerID)
		return vector, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	r.queries.Set(key, vector)
	return vector, nil
}

// modelKey scopes cache entries by model and owner so neither a model
// switch nor another tenant can serve a stale vector.
func (r *Retrieval) modelKey(ownerID string) string {
	return r.embedder.ModelName() + ":" + ownerID
}

// CacheStats exposes query-cache counters for the health endpoint.
func (r *Retrieval) CacheStats() cache.Stats {
	return r.queries.Stats()
}
