// Package chunker splits extracted text into overlapping, boundary-aware
// segments for embedding.
package chunker

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/corpus-ai/corpus/internal/core/domain"
)

// DefaultChunkSize is the target number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultOverlap is the number of characters shared between adjacent chunks.
const DefaultOverlap = 200

// DefaultMinChunkSize is the floor below which a chunk is dropped.
const DefaultMinChunkSize = 100

// MaxChunksPerDocument bounds memory and embedding cost per document.
// Chunking stops early once reached; the caller sees a truncation flag,
// not an error.
const MaxChunksPerDocument = 1000

// breakWindow is how far back from the window edge a break point is
// searched for.
const breakWindow = 200

// minBreakOffset is the minimum offset into the search window for a
// paragraph or word break to be usable.
const minBreakOffset = 50

// sentenceEnd matches a sentence terminator followed by whitespace and
// a capital letter.
var sentenceEnd = regexp.MustCompile(`[.!?]\s+[A-Z]`)

// Options configures a Splitter.
type Options struct {
	// ChunkSize is the target chunk size in characters.
	ChunkSize int

	// Overlap is the overlap between adjacent chunks in characters.
	Overlap int

	// MinChunkSize is the minimum viable chunk; shorter chunks are
	// discarded without halting chunking.
	MinChunkSize int
}

// Splitter splits document content into boundary-aware chunks.
type Splitter struct {
	chunkSize    int
	overlap      int
	minChunkSize int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithMinChunkSize sets the minimum viable chunk length.
func WithMinChunkSize(minSize int) Option {
	return func(s *Splitter) {
		if minSize > 0 {
			s.minChunkSize = minSize
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		overlap:      DefaultOverlap,
		minChunkSize: DefaultMinChunkSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't swallow the whole window
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	if s.minChunkSize > s.chunkSize {
		s.minChunkSize = s.chunkSize
	}

	return s
}

// Result is the output of a split.
type Result struct {
	// Chunks are the emitted chunks in document order, contiguous
	// indexes starting at 0.
	Chunks []domain.Chunk

	// Truncated is set when MaxChunksPerDocument stopped chunking
	// before the end of the text.
	Truncated bool
}

// Split chunks text for one document. Identical input always yields
// identical chunk boundaries, and the loop advances on every iteration,
// so Split terminates for any input.
func (s *Splitter) Split(text, documentID, ownerID string) Result {
	cleaned := Normalize(text)
	if cleaned == "" {
		return Result{}
	}

	// Fast path: the whole text fits in one chunk.
	if len(cleaned) <= s.chunkSize {
		if len(strings.TrimSpace(cleaned)) < s.minChunkSize {
			return Result{}
		}
		return Result{Chunks: []domain.Chunk{{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			OwnerID:    ownerID,
			Content:    cleaned,
			Index:      0,
			StartChar:  0,
			EndChar:    len(cleaned),
		}}}
	}

	var result Result
	start := 0
	index := 0

	for start < len(cleaned) {
		end := start + s.chunkSize
		if end > len(cleaned) {
			end = len(cleaned)
		} else {
			end = s.findBreak(cleaned, start, end)
		}

		content := strings.TrimSpace(cleaned[start:end])
		if len(content) >= s.minChunkSize {
			result.Chunks = append(result.Chunks, domain.Chunk{
				ID:         uuid.New().String(),
				DocumentID: documentID,
				OwnerID:    ownerID,
				Content:    content,
				Index:      index,
				StartChar:  start,
				EndChar:    end,
			})
			index++
		}

		if end >= len(cleaned) {
			break
		}

		// Advance with overlap. Forward progress is mandatory: if the
		// break point landed early enough that the overlap would move
		// the window backwards, advance by minChunkSize instead.
		next := end - s.overlap
		if next <= start {
			next = start + s.minChunkSize
		}
		start = next

		if len(result.Chunks) >= MaxChunksPerDocument {
			result.Truncated = true
			break
		}
	}

	return result
}

// findBreak searches backward within the tail of the window for the
// best break point: sentence boundary > paragraph boundary > word
// boundary > hard cut at the window edge.
func (s *Splitter) findBreak(text string, start, end int) int {
	searchStart := end - breakWindow
	if min := start + s.minChunkSize; searchStart < min {
		searchStart = min
	}
	if searchStart >= end {
		return end
	}
	window := text[searchStart:end]

	// Sentence boundary: terminator + space + capital. Break after the
	// terminator and its following space.
	if loc := sentenceEnd.FindStringIndex(window); loc != nil {
		return searchStart + loc[0] + 2
	}

	// Paragraph boundary.
	if para := strings.LastIndex(window, "\n\n"); para > minBreakOffset {
		return searchStart + para + 2
	}

	// Word boundary.
	if word := strings.LastIndex(window, " "); word > minBreakOffset {
		return searchStart + word + 1
	}

	return end
}

// Normalize canonicalises line endings, collapses runs of blank lines
// and trims surrounding whitespace so chunk boundaries are stable
// across platforms.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}

// Stats summarises chunk sizes for logging.
type Stats struct {
	Count      int
	AvgSize    int
	MinSize    int
	MaxSize    int
	TotalChars int
}

// ComputeStats returns size statistics for a set of chunks.
func ComputeStats(chunks []domain.Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	st := Stats{Count: len(chunks), MinSize: len(chunks[0].Content)}
	for _, c := range chunks {
		n := len(c.Content)
		st.TotalChars += n
		if n < st.MinSize {
			st.MinSize = n
		}
		if n > st.MaxSize {
			st.MaxSize = n
		}
	}
	st.AvgSize = st.TotalChars / len(chunks)
	return st
}
