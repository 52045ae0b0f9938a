// Package httpapi exposes ingestion and retrieval over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/corpus-ai/corpus/internal/core/ports/driven"
	"github.com/corpus-ai/corpus/internal/core/ports/driving"
	"github.com/corpus-ai/corpus/internal/logger"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP listener around the API router.
type Server struct {
	addr string
	srv  *http.Server
}

// ServerConfig bundles the server's collaborators.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// AllowedOrigins configures CORS; empty allows none.
	AllowedOrigins []string

	Ingestor  driving.Ingestor
	Retrieval driving.RetrievalService
	Documents driven.DocumentStore
	Jobs      driven.JobStore
	Embedder  driven.EmbeddingService
}

// NewServer creates an API server. Start it with ListenAndServe.
func NewServer(cfg ServerConfig) *Server {
	handler := &apiHandler{
		ingestor:  cfg.Ingestor,
		retrieval: cfg.Retrieval,
		documents: cfg.Documents,
		jobs:      cfg.Jobs,
		embedder:  cfg.Embedder,
	}

	return &Server{
		addr: cfg.Addr,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           newRouter(handler, cfg.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	logger.Info("http api listening on %s", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
