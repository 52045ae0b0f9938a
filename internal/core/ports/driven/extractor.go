package driven

import (
	"context"

	"github.com/corpus-ai/corpus/internal/core/domain"
)

// Extractor converts raw file bytes of one format into plain text.
// Extractors must not panic on malformed input; corrupt files surface
// as domain.ErrExtraction.
type Extractor interface {
	// Format returns the file format this extractor handles.
	Format() domain.Format

	// Extract converts raw bytes to plain UTF-8 text. It reads only the
	// input buffer and has no other side effects.
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorRegistry dispatches extraction on a format resolved once at
// the intake boundary.
type ExtractorRegistry interface {
	// Extract runs the extractor registered for the format.
	// Returns domain.ErrUnsupportedFormat when none is registered.
	Extract(ctx context.Context, format domain.Format, data []byte) (string, error)

	// Register adds an extractor. Later registrations for the same
	// format replace earlier ones.
	Register(e Extractor)

	// Supported returns the formats with a registered extractor.
	Supported() []domain.Format
}
