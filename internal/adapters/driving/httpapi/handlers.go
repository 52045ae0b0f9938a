package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
	"github.com/corpus-ai/corpus/internal/core/ports/driving"
)

type apiHandler struct {
	ingestor  driving.Ingestor
	retrieval driving.RetrievalService
	documents driven.DocumentStore
	jobs      driven.JobStore
	embedder  driven.EmbeddingService
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ingestRequest struct {
	OwnerID  string `json:"owner_id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type,omitempty"`
	Location string `json:"location"`
	ByteSize int64  `json:"byte_size,omitempty"`
}

type documentResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	FileName  string    `json:"file_name"`
	FileType  string    `json:"file_type,omitempty"`
	ByteSize  int64     `json:"byte_size"`
	Location  string    `json:"location"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type searchRequest struct {
	OwnerID   string    `json:"owner_id"`
	Query     string    `json:"query,omitempty"`
	Vector    []float32 `json:"vector,omitempty"`
	TopK      int       `json:"top_k,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
}

type searchResponse struct {
	Results []searchResultJSON `json:"results"`
}

type searchResultJSON struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

type contextResponse struct {
	Context string             `json:"context"`
	Sources []searchResultJSON `json:"sources"`
}

func (h *apiHandler) ingestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	doc, err := h.ingestor.Ingest(r.Context(), driving.IngestRequest{
		OwnerID:  req.OwnerID,
		FileName: req.FileName,
		FileType: req.FileType,
		Location: req.Location,
		ByteSize: req.ByteSize,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, toDocumentResponse(doc))
}

func (h *apiHandler) listDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "owner_id is required")
		return
	}

	docs, err := h.documents.ListDocuments(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *apiHandler) documentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.ingestor.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *apiHandler) reprocessDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.ingestor.Reprocess(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id, "status": "queued"})
}

func (h *apiHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "owner_id is required")
		return
	}
	if req.Query == "" && len(req.Vector) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "query or vector is required")
		return
	}

	opts := domain.SearchOptions{TopK: req.TopK, Threshold: req.Threshold}

	var (
		results []domain.SearchResult
		err     error
	)
	if len(req.Vector) > 0 {
		results, err = h.retrieval.SearchVector(r.Context(), req.Vector, req.OwnerID, opts)
	} else {
		results, err = h.retrieval.Search(r.Context(), req.Query, req.OwnerID, opts)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: toResultsJSON(results)})
}

func (h *apiHandler) buildContext(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}
	if req.OwnerID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "owner_id and query are required")
		return
	}

	result, err := h.retrieval.BuildContext(r.Context(), req.Query, req.OwnerID, domain.SearchOptions{
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contextResponse{
		Context: result.Context,
		Sources: toResultsJSON(result.Sources),
	})
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"ts":     time.Now().UTC().Format(time.RFC3339),
		"model":  h.embedder.ModelName(),
	}

	if stats, err := h.jobs.Stats(r.Context()); err == nil {
		resp["queue"] = map[string]int{
			"pending":    stats.Pending,
			"processing": stats.Processing,
			"completed":  stats.Completed,
			"failed":     stats.Failed,
		}
	}

	if err := h.embedder.Ping(r.Context()); err != nil {
		resp["status"] = "degraded"
		resp["embedding_error"] = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func toDocumentResponse(doc *domain.Document) documentResponse {
	return documentResponse{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		FileName:  doc.FileName,
		FileType:  doc.FileType,
		ByteSize:  doc.ByteSize,
		Location:  doc.Location,
		Status:    string(doc.Status),
		CreatedAt: doc.CreatedAt,
	}
}

func toResultsJSON(results []domain.SearchResult) []searchResultJSON {
	out := make([]searchResultJSON, 0, len(results))
	for _, res := range results {
		out = append(out, searchResultJSON{
			ChunkID:    res.ChunkID,
			DocumentID: res.DocumentID,
			ChunkIndex: res.ChunkIndex,
			Content:    res.Content,
			Similarity: res.Similarity,
		})
	}
	return out
}

// writeDomainError maps domain error classes onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_format", err.Error())
	case errors.Is(err, domain.ErrDimensionMismatch):
		writeError(w, http.StatusBadRequest, "dimension_mismatch", err.Error())
	case errors.Is(err, domain.ErrEmbeddingProvider):
		writeError(w, http.StatusBadGateway, "embedding_provider", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
