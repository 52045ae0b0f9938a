package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, owner_id, file_name, file_type, byte_size, location, status,
	total_chunks, processed_chunks, last_error, created_at, processing_started_at, processed_at`

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = domain.DocumentUploaded
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			file_name = excluded.file_name,
			file_type = excluded.file_type,
			byte_size = excluded.byte_size,
			location = excluded.location,
			status = excluded.status,
			total_chunks = excluded.total_chunks,
			processed_chunks = excluded.processed_chunks,
			last_error = excluded.last_error,
			processing_started_at = excluded.processing_started_at,
			processed_at = excluded.processed_at
	`, doc.ID, doc.OwnerID, doc.FileName, nullString(doc.FileType), doc.ByteSize,
		doc.Location, string(doc.Status), doc.TotalChunks, doc.ProcessedChunks,
		nullString(doc.LastError), doc.CreatedAt.UTC(),
		nullTime(doc.ProcessingStartedAt), nullTime(doc.ProcessedAt))

	if err != nil {
		return fmt.Errorf("%w: saving document: %v", domain.ErrStorage, err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = ?
	`, id)

	return scanDocument(row.Scan)
}

// UpdateStatus sets lifecycle status and the matching timestamp.
func (s *documentStore) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) error {
	now := time.Now().UTC()

	var res sql.Result
	var err error
	switch status {
	case domain.DocumentProcessing:
		res, err = s.store.db.ExecContext(ctx, `
			UPDATE documents SET status = ?, last_error = NULL, processing_started_at = ?, processed_at = NULL
			WHERE id = ?
		`, string(status), now, id)
	case domain.DocumentProcessed:
		res, err = s.store.db.ExecContext(ctx, `
			UPDATE documents SET status = ?, last_error = NULL, processed_at = ?
			WHERE id = ?
		`, string(status), now, id)
	default:
		// uploaded and failed both mean "not processed"; a stale
		// processed_at must not survive the transition.
		res, err = s.store.db.ExecContext(ctx, `
			UPDATE documents SET status = ?, last_error = ?, processed_at = NULL
			WHERE id = ?
		`, string(status), nullString(errMsg), id)
	}
	if err != nil {
		return fmt.Errorf("%w: updating document status: %v", domain.ErrStorage, err)
	}

	return requireRow(res)
}

// UpdateProgress sets the chunk progress counters.
func (s *documentStore) UpdateProgress(ctx context.Context, id string, processed, total int) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET processed_chunks = ?, total_chunks = ? WHERE id = ?
	`, processed, total, id)
	if err != nil {
		return fmt.Errorf("%w: updating document progress: %v", domain.ErrStorage, err)
	}
	return requireRow(res)
}

// GetChunks retrieves a document's chunks ordered by index.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, owner_id, content, position, start_char, end_char
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.OwnerID, &c.Content,
			&c.Index, &c.StartChar, &c.EndChar); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %v", domain.ErrStorage, err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %v", domain.ErrStorage, err)
	}
	return chunks, nil
}

// DeleteChunks removes all chunks and their embeddings for a document.
func (s *documentStore) DeleteChunks(ctx context.Context, documentID string) error {
	// Embeddings go via ON DELETE CASCADE.
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("%w: deleting chunks: %v", domain.ErrStorage, err)
	}
	return nil
}

// ListDocuments returns documents for an owner, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE owner_id = ?
		ORDER BY created_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %v", domain.ErrStorage, err)
	}
	return docs, nil
}

// scanDocument scans one document row via the given Scan func.
func scanDocument(scan func(...any) error) (*domain.Document, error) {
	var doc domain.Document
	var fileType, lastError sql.NullString
	var status string
	var processingStartedAt, processedAt sql.NullTime

	err := scan(&doc.ID, &doc.OwnerID, &doc.FileName, &fileType, &doc.ByteSize,
		&doc.Location, &status, &doc.TotalChunks, &doc.ProcessedChunks,
		&lastError, &doc.CreatedAt, &processingStartedAt, &processedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning document: %v", domain.ErrStorage, err)
	}

	doc.FileType = fileType.String
	doc.LastError = lastError.String
	doc.Status = domain.DocumentStatus(status)
	doc.ProcessingStartedAt = timeOrZero(processingStartedAt)
	doc.ProcessedAt = timeOrZero(processedAt)
	return &doc, nil
}

// requireRow maps a zero-row update to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", domain.ErrStorage, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
