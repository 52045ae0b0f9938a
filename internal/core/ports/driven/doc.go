// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Extractor: Turns raw file bytes into plain text for one format
//   - ExtractorRegistry: Dispatches extraction by detected format
//   - DocumentStore: Document and chunk persistence
//   - VectorStore: Embedding persistence and similarity search
//   - JobStore: Durable job queue with atomic claim semantics
//   - EmbeddingService: Generates vector embeddings
//   - FileFetcher: Downloads uploaded file bytes by location URI
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
