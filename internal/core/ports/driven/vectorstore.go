package driven

import (
	"context"

	"github.com/corpus-ai/corpus/internal/core/domain"
)

// VectorStore persists chunk embeddings and runs similarity search.
//
// Writers (the pipeline) and readers (search) run concurrently; the
// all-or-nothing guarantee on StoreEmbeddings is what keeps a search
// from ever observing a partially written document.
type VectorStore interface {
	// StoreEmbeddings bulk-inserts chunks and one embedding per chunk
	// in a single transaction. Either every row lands or none do; on
	// failure no partial set remains for the document. Returns the
	// number of embeddings stored.
	//
	// The first write for an owner fixes that owner's dimensionality;
	// later writes with a different dimensionality are rejected with
	// domain.ErrDimensionMismatch.
	StoreEmbeddings(ctx context.Context, chunks []domain.Chunk, embeddings []domain.Embedding) (int, error)

	// Search scores the query vector against every embedding stored for
	// the owner, filters by the similarity threshold and returns the
	// top K ordered by similarity descending. Ties break by document ID
	// then chunk index ascending, so results are deterministic.
	//
	// The query dimensionality is validated against the owner's stored
	// dimensionality; a mismatch returns domain.ErrDimensionMismatch
	// rather than silent wrong results.
	Search(ctx context.Context, query []float32, ownerID string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// OwnerDimensions returns the stored dimensionality for an owner,
	// or 0 when the owner has no embeddings yet.
	OwnerDimensions(ctx context.Context, ownerID string) (int, error)

	// CountEmbeddings returns how many embeddings an owner has stored.
	CountEmbeddings(ctx context.Context, ownerID string) (int, error)
}
