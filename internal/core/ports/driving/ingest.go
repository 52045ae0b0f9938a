package driving

import (
	"context"
	"time"

	"github.com/corpus-ai/corpus/internal/core/domain"
)

// IngestRequest is what the upload collaborator hands the core: the
// file is already stored somewhere reachable, the core only ingests it.
type IngestRequest struct {
	// OwnerID scopes every chunk and embedding produced.
	OwnerID string

	// FileName is the original upload name, used for format detection.
	FileName string

	// FileType is the declared MIME type, optional.
	FileType string

	// Location is the stored file URI (file:// or http(s)://).
	Location string

	// ByteSize is the uploaded size, if known.
	ByteSize int64
}

// DocumentStatus is the progress payload the UI polls.
type DocumentStatus struct {
	DocumentID         string                `json:"document_id"`
	Status             domain.DocumentStatus `json:"status"`
	ProgressPercentage int                   `json:"progress_percentage"`
	ProgressMessage    string                `json:"progress_message"`
	ProcessedChunks    int                   `json:"processed_chunks"`
	TotalChunks        int                   `json:"total_chunks"`
	EmbeddingCount     int                   `json:"embedding_count"`
	ErrorMessage       string                `json:"error_message,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	StartedAt          *time.Time            `json:"started_at,omitempty"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
}

// Ingestor accepts uploads and answers status queries.
type Ingestor interface {
	// Ingest creates the document record, enqueues a processing job and
	// returns immediately. Processing happens asynchronously; the queue
	// drain picks the job up even if the immediate trigger is lost.
	Ingest(ctx context.Context, req IngestRequest) (*domain.Document, error)

	// Reprocess re-runs the full pipeline for a document. Existing
	// chunks and embeddings are deleted before re-ingestion, never
	// appended to.
	Reprocess(ctx context.Context, documentID string) error

	// Status reports processing progress for one document.
	Status(ctx context.Context, documentID string) (*DocumentStatus, error)
}
