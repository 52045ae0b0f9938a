// Package domain defines the core business entities for corpus.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded source file moving through the pipeline
//   - Chunk: A contiguous text span, the unit of embedding and retrieval
//   - Embedding: The persisted vector for a chunk
//   - Job: A queued unit of pipeline work
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
