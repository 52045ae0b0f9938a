package driving

import (
	"context"

	"github.com/corpus-ai/corpus/internal/core/domain"
)

// RetrievalService answers query-time requests: raw similarity search
// and assembled context for the generation collaborator.
type RetrievalService interface {
	// Search embeds the query text and runs a scoped similarity search.
	Search(ctx context.Context, query, ownerID string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// SearchVector runs a similarity search with a caller-supplied
	// vector. Dimensionality is validated against the owner's stored
	// embeddings.
	SearchVector(ctx context.Context, vector []float32, ownerID string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// BuildContext retrieves the top chunks for a query and formats
	// them into a bounded context block. An empty context, not an
	// error, is returned when nothing clears the threshold.
	BuildContext(ctx context.Context, query, ownerID string, opts domain.SearchOptions) (*domain.ContextResult, error)
}
