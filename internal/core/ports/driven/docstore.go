package driven

import (
	"context"

	"github.com/corpus-ai/corpus/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// UpdateStatus sets lifecycle status and the matching timestamp.
	// The error message replaces LastError (empty clears it).
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) error

	// UpdateProgress sets the chunk progress counters.
	UpdateProgress(ctx context.Context, id string, processed, total int) error

	// GetChunks retrieves a document's chunks ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteChunks removes all chunks and their embeddings for a
	// document. Called before reprocessing so chunks are never
	// duplicated.
	DeleteChunks(ctx context.Context, documentID string) error

	// ListDocuments returns documents for an owner, newest first.
	ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error)
}
