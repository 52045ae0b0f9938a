// Package sqlite provides SQLite-backed implementations of the
// persistence ports: documents, chunks, embeddings and the job queue
// all live in one database file opened in WAL mode.
package sqlite
