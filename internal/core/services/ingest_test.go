package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driving"
)

func TestIngestService_IngestCreatesDocumentAndJob(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestService(store.DocumentStore(), store.JobStore())

	doc, err := svc.Ingest(ctx, driving.IngestRequest{
		OwnerID:  "owner-1",
		FileName: "notes.md",
		FileType: "text/markdown",
		Location: "file:///drop/notes.md",
		ByteSize: 2048,
	})
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	assert.Equal(t, domain.DocumentUploaded, doc.Status)
	assert.False(t, doc.CreatedAt.IsZero())

	job, err := store.JobStore().GetJobForDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, job.Status)
	assert.Equal(t, domain.JobTypeProcessDocument, job.Type)
	assert.Equal(t, doc.OwnerID, job.Payload.OwnerID)
	assert.Equal(t, doc.Location, job.Payload.Location)
	assert.Equal(t, domain.DefaultMaxAttempts, job.MaxAttempts)
}

func TestIngestService_IngestValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestService(store.DocumentStore(), store.JobStore())

	tests := []struct {
		name string
		req  driving.IngestRequest
		want error
	}{
		{
			name: "missing file name",
			req:  driving.IngestRequest{OwnerID: "o", Location: "file:///x"},
			want: domain.ErrInvalidInput,
		},
		{
			name: "missing location",
			req:  driving.IngestRequest{OwnerID: "o", FileName: "a.txt"},
			want: domain.ErrInvalidInput,
		},
		{
			name: "missing owner",
			req:  driving.IngestRequest{FileName: "a.txt", Location: "file:///x"},
			want: domain.ErrInvalidInput,
		},
		{
			name: "unsupported format",
			req:  driving.IngestRequest{OwnerID: "o", FileName: "archive.zip", Location: "file:///x"},
			want: domain.ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ingest(ctx, tt.req)
			requireErrorIs(t, err, tt.want)
		})
	}
}

func TestIngestService_IngestPokesWorker(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestService(store.DocumentStore(), store.JobStore())

	poke := make(chan struct{}, 1)
	svc.AttachWorker(poke)

	_, err := svc.Ingest(ctx, driving.IngestRequest{
		OwnerID:  "owner-1",
		FileName: "notes.txt",
		Location: "file:///drop/notes.txt",
	})
	require.NoError(t, err)

	select {
	case <-poke:
	default:
		t.Fatal("expected a wake signal after enqueue")
	}

	// A full channel must not block the next ingest.
	poke <- struct{}{}
	_, err = svc.Ingest(ctx, driving.IngestRequest{
		OwnerID:  "owner-1",
		FileName: "more.txt",
		Location: "file:///drop/more.txt",
	})
	require.NoError(t, err)
}

func TestIngestService_ReprocessResetsDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestService(store.DocumentStore(), store.JobStore())

	doc, err := svc.Ingest(ctx, driving.IngestRequest{
		OwnerID:  "owner-1",
		FileName: "notes.txt",
		Location: "file:///drop/notes.txt",
	})
	require.NoError(t, err)

	// Simulate a completed pipeline run.
	chunks := []domain.Chunk{{ID: "c1", DocumentID: doc.ID, OwnerID: doc.OwnerID, Content: "hello", Index: 0}}
	embeddings := []domain.Embedding{{ChunkID: "c1", Vector: []float32{1, 0, 0, 0}, Dimensions: 4}}
	_, err = store.VectorStore().StoreEmbeddings(ctx, chunks, embeddings)
	require.NoError(t, err)
	require.NoError(t, store.DocumentStore().UpdateProgress(ctx, doc.ID, 1, 1))
	require.NoError(t, store.DocumentStore().UpdateStatus(ctx, doc.ID, domain.DocumentProcessed, ""))

	require.NoError(t, svc.Reprocess(ctx, doc.ID))

	reset, err := store.DocumentStore().GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentUploaded, reset.Status)
	assert.Zero(t, reset.TotalChunks)

	left, err := store.DocumentStore().GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	job, err := store.JobStore().GetJobForDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, job.Status)
}

func TestIngestService_ReprocessRejectsInFlight(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestService(store.DocumentStore(), store.JobStore())

	doc, err := svc.Ingest(ctx, driving.IngestRequest{
		OwnerID:  "owner-1",
		FileName: "notes.txt",
		Location: "file:///drop/notes.txt",
	})
	require.NoError(t, err)
	require.NoError(t, store.DocumentStore().UpdateStatus(ctx, doc.ID, domain.DocumentProcessing, ""))

	requireErrorIs(t, svc.Reprocess(ctx, doc.ID), domain.ErrInvalidInput)
}

func TestIngestService_ReprocessUnknownDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestService(store.DocumentStore(), store.JobStore())

	requireErrorIs(t, svc.Reprocess(ctx, "missing"), domain.ErrNotFound)
}

func TestIngestService_StatusLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestService(store.DocumentStore(), store.JobStore())

	doc, err := svc.Ingest(ctx, driving.IngestRequest{
		OwnerID:  "owner-1",
		FileName: "notes.txt",
		Location: "file:///drop/notes.txt",
	})
	require.NoError(t, err)

	status, err := svc.Status(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentUploaded, status.Status)
	assert.Equal(t, 0, status.ProgressPercentage)
	assert.Equal(t, "queued for processing", status.ProgressMessage)
	assert.Nil(t, status.StartedAt)
	assert.Nil(t, status.CompletedAt)

	require.NoError(t, store.DocumentStore().UpdateStatus(ctx, doc.ID, domain.DocumentProcessing, ""))
	require.NoError(t, store.DocumentStore().UpdateProgress(ctx, doc.ID, 5, 10))

	status, err = svc.Status(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentProcessing, status.Status)
	assert.Equal(t, 50, status.ProgressPercentage)
	assert.Equal(t, "embedding chunks (5/10)", status.ProgressMessage)
	assert.NotNil(t, status.StartedAt)

	require.NoError(t, store.DocumentStore().UpdateProgress(ctx, doc.ID, 10, 10))
	require.NoError(t, store.DocumentStore().UpdateStatus(ctx, doc.ID, domain.DocumentProcessed, ""))

	status, err = svc.Status(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentProcessed, status.Status)
	assert.Equal(t, 100, status.ProgressPercentage)
	assert.Equal(t, 10, status.EmbeddingCount)
	assert.NotNil(t, status.CompletedAt)
}

func TestIngestService_StatusFailedDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestService(store.DocumentStore(), store.JobStore())

	doc, err := svc.Ingest(ctx, driving.IngestRequest{
		OwnerID:  "owner-1",
		FileName: "notes.txt",
		Location: "file:///drop/notes.txt",
	})
	require.NoError(t, err)
	require.NoError(t, store.DocumentStore().UpdateStatus(ctx, doc.ID, domain.DocumentFailed, "provider unreachable"))

	status, err := svc.Status(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentFailed, status.Status)
	assert.Equal(t, "provider unreachable", status.ErrorMessage)
	assert.Equal(t, "failed: provider unreachable", status.ProgressMessage)
}
