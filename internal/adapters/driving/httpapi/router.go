package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/corpus-ai/corpus/internal/logger"
)

// newRouter mounts the API routes with CORS and request logging.
func newRouter(h *apiHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         86400,
		}))
	}

	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", h.ingestDocument)
			r.Get("/", h.listDocuments)
			r.Get("/{id}/status", h.documentStatus)
			r.Post("/{id}/reprocess", h.reprocessDocument)
		})

		r.Post("/search", h.search)
		r.Post("/context", h.buildContext)
	})

	return r
}

// requestLogger emits one debug line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
