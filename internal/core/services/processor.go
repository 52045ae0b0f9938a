package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/corpus-ai/corpus/internal/chunker"
	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
	"github.com/corpus-ai/corpus/internal/logger"
)

// Processor runs the ingestion pipeline for one document: fetch,
// extract, chunk, embed, store. Each stage heartbeats the job so the
// recovery sweep can tell a slow pipeline from a dead one.
type Processor struct {
	docStore   driven.DocumentStore
	vectors    driven.VectorStore
	jobs       driven.JobStore
	extractors driven.ExtractorRegistry
	embedder   driven.EmbeddingService
	fetcher    driven.FileFetcher
	splitter   *chunker.Splitter
	batchSize  int
}

// ProcessorConfig bundles the processor's collaborators.
type ProcessorConfig struct {
	DocumentStore driven.DocumentStore
	VectorStore   driven.VectorStore
	JobStore      driven.JobStore
	Extractors    driven.ExtractorRegistry
	Embedder      driven.EmbeddingService
	Fetcher       driven.FileFetcher

	// Splitter is optional; nil selects the default chunk geometry.
	Splitter *chunker.Splitter

	// BatchSize is texts per embedding request (default 64).
	BatchSize int
}

// NewProcessor creates a pipeline processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	splitter := cfg.Splitter
	if splitter == nil {
		splitter = chunker.New()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	return &Processor{
		docStore:   cfg.DocumentStore,
		vectors:    cfg.VectorStore,
		jobs:       cfg.JobStore,
		extractors: cfg.Extractors,
		embedder:   cfg.Embedder,
		fetcher:    cfg.Fetcher,
		splitter:   splitter,
		batchSize:  batchSize,
	}
}

// Process runs the full pipeline for a claimed job. The caller owns
// job state transitions; Process only reports the stage error.
func (p *Processor) Process(ctx context.Context, job *domain.Job) error {
	docID := job.Payload.DocumentID
	logger.Debug("processing document %s (attempt %d)", docID, job.Attempts)

	if err := p.docStore.UpdateStatus(ctx, docID, domain.DocumentProcessing, ""); err != nil {
		return err
	}

	// Fetch
	data, err := p.fetcher.Fetch(ctx, job.Payload.Location)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", job.Payload.Location, err)
	}
	p.heartbeat(ctx, job.ID)

	// Extract
	format := domain.DetectFormat(job.Payload.FileName, job.Payload.FileType)
	text, err := p.extractors.Extract(ctx, format, data)
	if err != nil {
		return err
	}
	if text == "" {
		return p.completeEmpty(ctx, docID)
	}
	p.heartbeat(ctx, job.ID)

	// Chunk
	result := p.splitter.Split(text, docID, job.Payload.OwnerID)
	if len(result.Chunks) == 0 {
		return p.completeEmpty(ctx, docID)
	}
	if result.Truncated {
		logger.Warn("document %s hit the chunk cap, indexing first %d chunks", docID, len(result.Chunks))
	}
	logChunkStats(docID, result.Chunks)

	// Reprocessing replaces; stale chunks never survive next to new ones.
	if err := p.docStore.DeleteChunks(ctx, docID); err != nil {
		return err
	}
	if err := p.docStore.UpdateProgress(ctx, docID, 0, len(result.Chunks)); err != nil {
		return err
	}
	p.heartbeat(ctx, job.ID)

	// Embed in batches, tracking progress as each batch lands.
	embeddings, err := p.embedAll(ctx, job, result.Chunks)
	if err != nil {
		return err
	}

	// Store chunks and vectors atomically.
	stored, err := p.vectors.StoreEmbeddings(ctx, result.Chunks, embeddings)
	if err != nil {
		return err
	}

	if err := p.docStore.UpdateProgress(ctx, docID, stored, len(result.Chunks)); err != nil {
		return err
	}
	if err := p.docStore.UpdateStatus(ctx, docID, domain.DocumentProcessed, ""); err != nil {
		return err
	}

	logger.Info("document %s processed: %d chunks embedded with %s",
		docID, stored, p.embedder.ModelName())
	return nil
}

// completeEmpty finishes a document that yielded no chunkable text.
// That is a valid outcome, not a failure: the document ends up
// processed with zero embeddings. Any chunks from a previous run are
// removed so the index matches the current content.
func (p *Processor) completeEmpty(ctx context.Context, docID string) error {
	if err := p.docStore.DeleteChunks(ctx, docID); err != nil {
		return err
	}
	if err := p.docStore.UpdateProgress(ctx, docID, 0, 0); err != nil {
		return err
	}
	if err := p.docStore.UpdateStatus(ctx, docID, domain.DocumentProcessed, ""); err != nil {
		return err
	}

	logger.Info("document %s processed: no extractable text, zero chunks indexed", docID)
	return nil
}

// embedAll embeds every chunk in batches. Progress counts advance per
// batch; nothing is persisted here, so a mid-batch failure leaves no
// partial vectors behind.
func (p *Processor) embedAll(ctx context.Context, job *domain.Job, chunks []domain.Chunk) ([]domain.Embedding, error) {
	embeddings := make([]domain.Embedding, 0, len(chunks))

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts",
				domain.ErrEmbeddingProvider, len(vectors), len(texts))
		}

		for i, vec := range vectors {
			embeddings = append(embeddings, domain.Embedding{
				ChunkID:    chunks[start+i].ID,
				Vector:     vec,
				Dimensions: len(vec),
			})
		}

		p.heartbeat(ctx, job.ID)
		if err := p.docStore.UpdateProgress(ctx, job.Payload.DocumentID, end, len(chunks)); err != nil {
			return nil, err
		}
	}

	return embeddings, nil
}

// logChunkStats emits chunk size statistics at debug level.
func logChunkStats(docID string, chunks []domain.Chunk) {
	if len(chunks) == 0 || !logger.IsVerbose() {
		return
	}
	minLen, maxLen, total := len(chunks[0].Content), len(chunks[0].Content), 0
	for _, c := range chunks {
		n := len(c.Content)
		if n < minLen {
			minLen = n
		}
		if n > maxLen {
			maxLen = n
		}
		total += n
	}
	logger.Debug("document %s: %d chunks, avg %d chars (min %d, max %d)",
		docID, len(chunks), total/len(chunks), minLen, maxLen)
}

// heartbeat bumps job liveness; a failure here is logged, not fatal.
func (p *Processor) heartbeat(ctx context.Context, jobID string) {
	if err := p.jobs.Heartbeat(ctx, jobID); err != nil {
		logger.Warn("heartbeat for job %s failed: %v", jobID, err)
	}
}

// newJobID generates a job identifier.
func newJobID() string {
	return uuid.New().String()
}
