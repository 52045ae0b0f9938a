package extractors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
)

// MaxFileSize caps the input passed to any extractor.
const MaxFileSize = 100 * 1024 * 1024 // 100MB

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches extraction by format.
type Registry struct {
	mu         sync.RWMutex
	extractors map[domain.Format]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[domain.Format]driven.Extractor),
	}
}

// NewDefaultRegistry creates a registry with all built-in extractors
// registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewPlaintext())
	r.Register(NewMarkdown())
	r.Register(NewPDF())
	r.Register(NewDOCX())
	r.Register(NewCSV())
	return r
}

// Register adds an extractor, replacing any previous one for the same
// format.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Format()] = e
}

// Supported returns the registered formats in stable order.
func (r *Registry) Supported() []domain.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]domain.Format, 0, len(r.extractors))
	for f := range r.extractors {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Extract runs the extractor registered for the format.
func (r *Registry) Extract(ctx context.Context, format domain.Format, data []byte) (string, error) {
	if len(data) > MaxFileSize {
		return "", fmt.Errorf("%w: file is %d bytes, maximum is %d", domain.ErrInvalidInput, len(data), MaxFileSize)
	}

	r.mu.RLock()
	e, ok := r.extractors[format]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, format)
	}

	return e.Extract(ctx, data)
}
