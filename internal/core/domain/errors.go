package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates a file type no extractor handles.
	// Terminal for the document; retrying cannot help.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtraction indicates malformed or corrupt input that could not
	// be turned into text. Terminal for the document.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbeddingProvider indicates the embedding provider failed or
	// timed out. Transient; retried up to the job's attempt budget.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrDimensionMismatch indicates a vector whose dimensionality does
	// not match the owner's stored embeddings. A configuration error,
	// never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStorage indicates a vector/metadata write failed. Transient;
	// partial writes are rolled back before the error surfaces.
	ErrStorage = errors.New("storage write failed")

	// ErrJobClaimed indicates another worker claimed the job first.
	ErrJobClaimed = errors.New("job already claimed")

	// ErrJobStale is the internal stuck-job detection condition,
	// resolved by the recovery sweep. Not user facing.
	ErrJobStale = errors.New("job stale")
)

// Retryable reports whether an error class is worth retrying. Only
// provider and storage failures are transient; everything else is a
// property of the input or configuration.
func Retryable(err error) bool {
	return errors.Is(err, ErrEmbeddingProvider) || errors.Is(err, ErrStorage)
}
