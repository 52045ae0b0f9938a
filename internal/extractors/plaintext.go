package extractors

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
)

// Ensure Plaintext implements the interface.
var _ driven.Extractor = (*Plaintext)(nil)

// Plaintext handles plain text files.
type Plaintext struct{}

// NewPlaintext creates a new plain text extractor.
func NewPlaintext() *Plaintext {
	return &Plaintext{}
}

// Format returns the format this extractor handles.
func (e *Plaintext) Format() domain.Format {
	return domain.FormatText
}

// Extract returns the file content as trimmed UTF-8 text.
func (e *Plaintext) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: file is not valid UTF-8", domain.ErrExtraction)
	}
	return strings.TrimSpace(string(data)), nil
}
