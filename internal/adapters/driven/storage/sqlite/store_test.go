package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpus-ai/corpus/internal/core/domain"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "corpus.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument(id, ownerID string) *domain.Document {
	return &domain.Document{
		ID:       id,
		OwnerID:  ownerID,
		FileName: "notes.txt",
		FileType: "text/plain",
		ByteSize: 1024,
		Location: "file:///tmp/notes.txt",
		Status:   domain.DocumentUploaded,
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "nested", "corpus.db"))
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "nested", "corpus.db"), store.Path())
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store1.Close())

	// Reopening reruns migrate against an up-to-date schema.
	store2, err := NewStore(path)
	require.NoError(t, err)
	defer store2.Close()
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := testDocument("doc-1", "owner-1")
	require.NoError(t, docs.SaveDocument(ctx, doc))

	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, "notes.txt", got.FileName)
	assert.Equal(t, domain.DocumentUploaded, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
	assert.True(t, got.ProcessedAt.IsZero())
}

func TestDocumentStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.DocumentStore().GetDocument(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveUpsert(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := testDocument("doc-1", "owner-1")
	require.NoError(t, docs.SaveDocument(ctx, doc))

	doc.FileName = "renamed.txt"
	require.NoError(t, docs.SaveDocument(ctx, doc))

	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", got.FileName)
}

func TestDocumentStore_UpdateStatus(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, testDocument("doc-1", "owner-1")))

	require.NoError(t, docs.UpdateStatus(ctx, "doc-1", domain.DocumentProcessing, ""))
	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentProcessing, got.Status)
	assert.False(t, got.ProcessingStartedAt.IsZero())

	require.NoError(t, docs.UpdateStatus(ctx, "doc-1", domain.DocumentProcessed, ""))
	got, err = docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentProcessed, got.Status)
	assert.False(t, got.ProcessedAt.IsZero())
	assert.Empty(t, got.LastError)
}

func TestDocumentStore_UpdateStatus_Failed(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, testDocument("doc-1", "owner-1")))
	require.NoError(t, docs.UpdateStatus(ctx, "doc-1", domain.DocumentFailed, "provider unavailable"))

	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentFailed, got.Status)
	assert.Equal(t, "provider unavailable", got.LastError)
}

func TestDocumentStore_UpdateStatus_ClearsProcessedAt(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, testDocument("doc-1", "owner-1")))
	require.NoError(t, docs.UpdateStatus(ctx, "doc-1", domain.DocumentProcessed, ""))

	// Leaving the processed state takes the timestamp with it, whether
	// the document is queued again or failed.
	require.NoError(t, docs.UpdateStatus(ctx, "doc-1", domain.DocumentUploaded, ""))
	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, got.ProcessedAt.IsZero())

	require.NoError(t, docs.UpdateStatus(ctx, "doc-1", domain.DocumentProcessed, ""))
	require.NoError(t, docs.UpdateStatus(ctx, "doc-1", domain.DocumentFailed, "boom"))
	got, err = docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, got.ProcessedAt.IsZero())
}

func TestDocumentStore_UpdateStatus_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.DocumentStore().UpdateStatus(ctx, "nope", domain.DocumentProcessing, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_UpdateProgress(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, testDocument("doc-1", "owner-1")))
	require.NoError(t, docs.UpdateProgress(ctx, "doc-1", 3, 10))

	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ProcessedChunks)
	assert.Equal(t, 10, got.TotalChunks)
}

func TestDocumentStore_ListDocuments_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	older := testDocument("doc-old", "owner-1")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, docs.SaveDocument(ctx, older))

	newer := testDocument("doc-new", "owner-1")
	require.NoError(t, docs.SaveDocument(ctx, newer))

	other := testDocument("doc-other", "owner-2")
	require.NoError(t, docs.SaveDocument(ctx, other))

	list, err := docs.ListDocuments(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "doc-new", list[0].ID)
	assert.Equal(t, "doc-old", list[1].ID)
}

func TestDocumentStore_ChunksRoundTrip(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	vectors := store.VectorStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, testDocument("doc-1", "owner-1")))

	chunks := []domain.Chunk{
		{ID: "c-0", DocumentID: "doc-1", OwnerID: "owner-1", Content: "first", Index: 0, StartChar: 0, EndChar: 5},
		{ID: "c-1", DocumentID: "doc-1", OwnerID: "owner-1", Content: "second", Index: 1, StartChar: 5, EndChar: 11},
	}
	embeddings := []domain.Embedding{
		{ChunkID: "c-0", Vector: []float32{1, 0}},
		{ChunkID: "c-1", Vector: []float32{0, 1}},
	}

	n, err := vectors.StoreEmbeddings(ctx, chunks, embeddings)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := docs.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, "second", got[1].Content)
	assert.Equal(t, 11, got[1].EndChar)
}

func TestDocumentStore_DeleteChunks_CascadesToEmbeddings(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	vectors := store.VectorStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, testDocument("doc-1", "owner-1")))

	chunks := []domain.Chunk{
		{ID: "c-0", DocumentID: "doc-1", OwnerID: "owner-1", Content: "text", Index: 0},
	}
	embeddings := []domain.Embedding{{ChunkID: "c-0", Vector: []float32{1, 2, 3}}}

	_, err := vectors.StoreEmbeddings(ctx, chunks, embeddings)
	require.NoError(t, err)

	require.NoError(t, docs.DeleteChunks(ctx, "doc-1"))

	got, err := docs.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	count, err := vectors.CountEmbeddings(ctx, "owner-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}
