package domain

import "time"

// DocumentStatus tracks a document through the processing lifecycle.
type DocumentStatus string

const (
	// DocumentUploaded means the file is stored but not yet processed.
	DocumentUploaded DocumentStatus = "uploaded"

	// DocumentProcessing means a pipeline job is working on the document.
	DocumentProcessing DocumentStatus = "processing"

	// DocumentProcessed means extraction, chunking and embedding completed.
	DocumentProcessed DocumentStatus = "processed"

	// DocumentFailed means a pipeline stage failed; LastError holds the cause.
	DocumentFailed DocumentStatus = "failed"
)

// Document represents one uploaded source file.
// Status transitions are monotonic (uploaded → processing → processed|failed)
// except for failed → processing on a manual reprocess.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OwnerID is the tenant/model identifier that scopes retrieval.
	// Embeddings are never shared across owners.
	OwnerID string

	// FileName is the original upload name.
	FileName string

	// FileType is the declared MIME type, if the uploader provided one.
	FileType string

	// ByteSize is the size of the uploaded file.
	ByteSize int64

	// Location is where the raw bytes live (file:// or http(s):// URI).
	Location string

	// Status is the lifecycle state.
	Status DocumentStatus

	// TotalChunks and ProcessedChunks are progress counters updated by
	// the pipeline while embedding.
	TotalChunks     int
	ProcessedChunks int

	// LastError is the human-readable failure message, set when Status
	// is failed.
	LastError string

	CreatedAt time.Time

	// ProcessingStartedAt is when the pipeline claimed the document.
	ProcessingStartedAt time.Time

	// ProcessedAt is set iff Status is processed.
	ProcessedAt time.Time
}

// Chunk is a contiguous span of extracted text, the unit of embedding
// and retrieval. Chunks for one document are produced in strictly
// increasing Index order with non-decreasing StartChar offsets.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// OwnerID is denormalised from the document for query scoping.
	OwnerID string

	// Content is the chunk text.
	Content string

	// Index is the zero-based position within the document.
	Index int

	// StartChar and EndChar are character offsets into the extracted
	// text, half-open [StartChar, EndChar).
	StartChar int
	EndChar   int
}

// Embedding is the persisted vector for a chunk. Exactly one embedding
// exists per chunk; all embeddings under one owner share a single
// dimensionality.
type Embedding struct {
	// ChunkID links to the chunk the vector represents.
	ChunkID string

	// Vector is the float vector, decompressed form.
	Vector []float32

	// Compression holds quantisation metadata when the vector is stored
	// compressed, nil otherwise.
	Compression *CompressionMeta

	// Dimensions is the vector dimensionality before any compression.
	Dimensions int

	CreatedAt time.Time
}

// CompressionMeta records how a stored vector was quantised so it can
// be reconstructed before similarity scoring.
type CompressionMeta struct {
	// Method is the quantisation method ("int8" or "int16").
	Method string

	// Min and Max bound the original float range.
	Min float32
	Max float32
}

// ProgressPercentage returns completion as 0-100 for UI polling.
func (d *Document) ProgressPercentage() int {
	switch d.Status {
	case DocumentProcessed:
		return 100
	case DocumentUploaded:
		return 0
	}
	if d.TotalChunks <= 0 {
		return 0
	}
	pct := d.ProcessedChunks * 100 / d.TotalChunks
	if pct > 100 {
		pct = 100
	}
	return pct
}
