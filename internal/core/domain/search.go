package domain

// SearchOptions controls a similarity search.
type SearchOptions struct {
	// TopK is the maximum number of chunks returned (default 5).
	TopK int

	// Threshold is the minimum cosine similarity for a match, in [-1,1].
	Threshold float64
}

// DefaultTopK is the search result count when the caller does not set one.
const DefaultTopK = 5

// DefaultSimilarityThreshold filters weak matches from retrieval.
const DefaultSimilarityThreshold = 0.35

// SearchResult is one ranked chunk from a similarity search.
type SearchResult struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// DocumentID is the chunk's parent document.
	DocumentID string

	// ChunkIndex is the chunk's ordinal within its document.
	ChunkIndex int

	// Content is the chunk text.
	Content string

	// Similarity is the cosine similarity against the query, in [-1,1].
	Similarity float64
}

// ContextResult is the assembled retrieval context handed to the
// generation collaborator. Context is a complete bounded string, never
// a stream.
type ContextResult struct {
	// Context is the formatted context block. Empty when no chunk
	// cleared the similarity threshold.
	Context string

	// Sources are the chunks used, highest similarity first.
	Sources []SearchResult
}
