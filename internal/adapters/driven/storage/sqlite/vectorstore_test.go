package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/quantize"
)

// seedEmbeddings stores one document with the given vectors under the
// owner last; chunk IDs are derived from the document ID.
func seedEmbeddings(t *testing.T, store *Store, docID, ownerID string, vectors [][]float32) {
	t.Helper()
	ctx := context.Background()

	doc := testDocument(docID, ownerID)
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))

	chunks := make([]domain.Chunk, len(vectors))
	embeddings := make([]domain.Embedding, len(vectors))
	for i, vec := range vectors {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s-c%d", docID, i),
			DocumentID: docID,
			OwnerID:    ownerID,
			Content:    fmt.Sprintf("chunk %d of %s", i, docID),
			Index:      i,
		}
		embeddings[i] = domain.Embedding{ChunkID: chunks[i].ID, Vector: vec}
	}

	_, err := store.VectorStore().StoreEmbeddings(ctx, chunks, embeddings)
	require.NoError(t, err)
}

func TestVectorStore_SearchRanksBySimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEmbeddings(t, store, "doc-1", "owner-1", [][]float32{
		{1, 0, 0}, // identical to query
		{0, 1, 0}, // orthogonal
		{1, 1, 0}, // 45 degrees
	})

	results, err := store.VectorStore().Search(ctx, []float32{1, 0, 0}, "owner-1", domain.SearchOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "doc-1-c0", results[0].ChunkID)
	assert.InDelta(t, 1.0, float64(results[0].Similarity), 1e-5)
	assert.Equal(t, "doc-1-c2", results[1].ChunkID)
	assert.InDelta(t, 0.7071, float64(results[1].Similarity), 1e-3)
	assert.Equal(t, "doc-1-c1", results[2].ChunkID)
	assert.InDelta(t, 0.0, float64(results[2].Similarity), 1e-5)
}

func TestVectorStore_SearchThreshold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEmbeddings(t, store, "doc-1", "owner-1", [][]float32{
		{1, 0},
		{1, 1},
	})

	results, err := store.VectorStore().Search(ctx, []float32{1, 0}, "owner-1",
		domain.SearchOptions{TopK: 5, Threshold: 0.9})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1-c0", results[0].ChunkID)
}

func TestVectorStore_SearchTopK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	vectors := make([][]float32, 10)
	for i := range vectors {
		vectors[i] = []float32{1, float32(i) * 0.1}
	}
	seedEmbeddings(t, store, "doc-1", "owner-1", vectors)

	results, err := store.VectorStore().Search(ctx, []float32{1, 0}, "owner-1", domain.SearchOptions{TopK: 3})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestVectorStore_SearchScopedToOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEmbeddings(t, store, "doc-a", "owner-a", [][]float32{{1, 0}})
	seedEmbeddings(t, store, "doc-b", "owner-b", [][]float32{{1, 0}})

	results, err := store.VectorStore().Search(ctx, []float32{1, 0}, "owner-a", domain.SearchOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-a", results[0].DocumentID)
}

func TestVectorStore_SearchDeterministicTieBreak(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Two documents with identical vectors produce equal similarity.
	seedEmbeddings(t, store, "doc-b", "owner-1", [][]float32{{1, 0}, {1, 0}})
	seedEmbeddings(t, store, "doc-a", "owner-1", [][]float32{{1, 0}})

	for i := 0; i < 3; i++ {
		results, err := store.VectorStore().Search(ctx, []float32{1, 0}, "owner-1", domain.SearchOptions{TopK: 3})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "doc-a", results[0].DocumentID)
		assert.Equal(t, "doc-b", results[1].DocumentID)
		assert.Equal(t, 0, results[1].ChunkIndex)
		assert.Equal(t, 1, results[2].ChunkIndex)
	}
}

func TestVectorStore_SearchEmptyOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	results, err := store.VectorStore().Search(ctx, []float32{1, 0}, "nobody", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorStore_DimensionMismatchOnSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEmbeddings(t, store, "doc-1", "owner-1", [][]float32{{1, 0, 0}})

	_, err := store.VectorStore().Search(ctx, []float32{1, 0}, "owner-1", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorStore_DimensionMismatchOnStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEmbeddings(t, store, "doc-1", "owner-1", [][]float32{{1, 0, 0}})

	require.NoError(t, store.DocumentStore().SaveDocument(ctx, testDocument("doc-2", "owner-1")))
	chunks := []domain.Chunk{{ID: "c-x", DocumentID: "doc-2", OwnerID: "owner-1", Content: "x", Index: 0}}
	embeddings := []domain.Embedding{{ChunkID: "c-x", Vector: []float32{1, 0}}}

	_, err := store.VectorStore().StoreEmbeddings(ctx, chunks, embeddings)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorStore_StoreEmbeddings_MismatchedLengths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []domain.Chunk{{ID: "c-0", DocumentID: "doc-1", OwnerID: "owner-1", Content: "x", Index: 0}}
	_, err := store.VectorStore().StoreEmbeddings(ctx, chunks, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorStore_StoreEmbeddings_AllOrNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.DocumentStore().SaveDocument(ctx, testDocument("doc-1", "owner-1")))

	// Duplicate chunk IDs violate the primary key mid-transaction.
	chunks := []domain.Chunk{
		{ID: "c-0", DocumentID: "doc-1", OwnerID: "owner-1", Content: "a", Index: 0},
		{ID: "c-0", DocumentID: "doc-1", OwnerID: "owner-1", Content: "b", Index: 1},
	}
	embeddings := []domain.Embedding{
		{ChunkID: "c-0", Vector: []float32{1, 0}},
		{ChunkID: "c-0", Vector: []float32{0, 1}},
	}

	_, err := store.VectorStore().StoreEmbeddings(ctx, chunks, embeddings)
	require.Error(t, err)

	count, err := store.VectorStore().CountEmbeddings(ctx, "owner-1")
	require.NoError(t, err)
	assert.Zero(t, count, "failed batch must leave no rows behind")

	got, err := store.DocumentStore().GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVectorStore_OwnerDimensions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dims, err := store.VectorStore().OwnerDimensions(ctx, "owner-1")
	require.NoError(t, err)
	assert.Zero(t, dims)

	seedEmbeddings(t, store, "doc-1", "owner-1", [][]float32{{1, 2, 3, 4}})

	dims, err = store.VectorStore().OwnerDimensions(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 4, dims)
}

func TestVectorStore_CompressedSearchStillRanksCorrectly(t *testing.T) {
	for _, method := range []quantize.Method{quantize.MethodInt8, quantize.MethodInt16} {
		t.Run(string(method), func(t *testing.T) {
			store := newTestStore(t, WithCompression(method))
			ctx := context.Background()

			seedEmbeddings(t, store, "doc-1", "owner-1", [][]float32{
				{0.9, 0.1, 0.2},
				{0.1, 0.9, 0.3},
			})

			results, err := store.VectorStore().Search(ctx, []float32{0.9, 0.1, 0.2}, "owner-1",
				domain.SearchOptions{TopK: 2})
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, "doc-1-c0", results[0].ChunkID)
			assert.InDelta(t, 1.0, float64(results[0].Similarity), 0.02)
		})
	}
}
