package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
	"github.com/corpus-ai/corpus/internal/core/ports/driving"
	"github.com/corpus-ai/corpus/internal/logger"
)

// IngestService accepts uploads, enqueues processing work and answers
// status queries. The actual pipeline runs in the Worker; Ingest only
// records intent and returns.
type IngestService struct {
	docStore driven.DocumentStore
	jobs     driven.JobStore

	// poke wakes the worker without waiting for the next poll tick.
	// Nil when no worker is attached (one-shot CLI runs).
	poke chan<- struct{}
}

var _ driving.Ingestor = (*IngestService)(nil)

// NewIngestService creates the intake service.
func NewIngestService(docStore driven.DocumentStore, jobs driven.JobStore) *IngestService {
	return &IngestService{
		docStore: docStore,
		jobs:     jobs,
	}
}

// AttachWorker wires the worker wake channel. Must be called before
// Start on the worker; ingestion works without it, just slower.
func (s *IngestService) AttachWorker(poke chan<- struct{}) {
	s.poke = poke
}

// Ingest creates the document record and enqueues a processing job.
func (s *IngestService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.Document, error) {
	if strings.TrimSpace(req.FileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Location) == "" {
		return nil, fmt.Errorf("%w: location is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}

	format := domain.DetectFormat(req.FileName, req.FileType)
	if format == domain.FormatUnknown {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, req.FileName)
	}

	doc := &domain.Document{
		ID:        uuid.New().String(),
		OwnerID:   req.OwnerID,
		FileName:  req.FileName,
		FileType:  req.FileType,
		ByteSize:  req.ByteSize,
		Location:  req.Location,
		Status:    domain.DocumentUploaded,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, doc); err != nil {
		return nil, err
	}

	logger.Info("ingested %s (%s, %d bytes) as document %s", doc.FileName, format, doc.ByteSize, doc.ID)
	return doc, nil
}

// Reprocess resets a document and queues a fresh pipeline run. Old
// chunks are removed before the new job can land embeddings, so a
// reprocess never appends to stale data.
func (s *IngestService) Reprocess(ctx context.Context, documentID string) error {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status == domain.DocumentProcessing {
		return fmt.Errorf("%w: document %s is already processing", domain.ErrInvalidInput, documentID)
	}

	if err := s.docStore.DeleteChunks(ctx, documentID); err != nil {
		return err
	}
	if err := s.docStore.UpdateProgress(ctx, documentID, 0, 0); err != nil {
		return err
	}
	if err := s.docStore.UpdateStatus(ctx, documentID, domain.DocumentUploaded, ""); err != nil {
		return err
	}

	if err := s.enqueue(ctx, doc); err != nil {
		return err
	}

	logger.Info("reprocess queued for document %s", documentID)
	return nil
}

// Status assembles the progress payload for one document.
func (s *IngestService) Status(ctx context.Context, documentID string) (*driving.DocumentStatus, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	status := &driving.DocumentStatus{
		DocumentID:         doc.ID,
		Status:             doc.Status,
		ProgressPercentage: doc.ProgressPercentage(),
		ProgressMessage:    progressMessage(doc),
		ProcessedChunks:    doc.ProcessedChunks,
		TotalChunks:        doc.TotalChunks,
		ErrorMessage:       doc.LastError,
		CreatedAt:          doc.CreatedAt,
	}
	if doc.Status == domain.DocumentProcessed {
		status.EmbeddingCount = doc.ProcessedChunks
	}
	if !doc.ProcessingStartedAt.IsZero() {
		t := doc.ProcessingStartedAt
		status.StartedAt = &t
	}
	if !doc.ProcessedAt.IsZero() {
		t := doc.ProcessedAt
		status.CompletedAt = &t
	}

	// Positional queue info helps the UI explain a long "uploaded" wait.
	if doc.Status == domain.DocumentUploaded {
		if job, err := s.jobs.GetJobForDocument(ctx, documentID); err == nil && job.Status == domain.JobPending {
			status.ProgressMessage = "queued for processing"
		}
	}

	return status, nil
}

func (s *IngestService) enqueue(ctx context.Context, doc *domain.Document) error {
	job := &domain.Job{
		ID:   newJobID(),
		Type: domain.JobTypeProcessDocument,
		Payload: domain.JobPayload{
			DocumentID: doc.ID,
			OwnerID:    doc.OwnerID,
			Location:   doc.Location,
			FileName:   doc.FileName,
			FileType:   doc.FileType,
		},
		MaxAttempts: domain.DefaultMaxAttempts,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return err
	}

	// Best effort; the worker's poll loop is the durable trigger.
	if s.poke != nil {
		select {
		case s.poke <- struct{}{}:
		default:
		}
	}
	return nil
}

func progressMessage(doc *domain.Document) string {
	switch doc.Status {
	case domain.DocumentUploaded:
		return "waiting for processing"
	case domain.DocumentProcessing:
		if doc.TotalChunks > 0 {
			return fmt.Sprintf("embedding chunks (%d/%d)", doc.ProcessedChunks, doc.TotalChunks)
		}
		return "extracting text"
	case domain.DocumentProcessed:
		return fmt.Sprintf("processed %d chunks", doc.ProcessedChunks)
	case domain.DocumentFailed:
		if doc.LastError != "" {
			return "failed: " + doc.LastError
		}
		return "failed"
	}
	return ""
}

// errIsNotFound keeps status handling readable at call sites.
func errIsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
