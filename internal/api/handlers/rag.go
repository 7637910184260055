package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/transcriptrag/internal/api"
	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/cloo-solutions/transcriptrag/internal/pagination"
	"github.com/cloo-solutions/transcriptrag/internal/service"
)

type RAGService interface {
	BuildIndex(ctx context.Context, input service.BuildInput) (*service.BuildResult, error)
	Query(ctx context.Context, question string) (*service.QueryResult, error)
	Stats(ctx context.Context) (*service.IndexStats, error)
	ListChunks(ctx context.Context) ([]domain.StoredChunk, error)
	ClearIndex(ctx context.Context) (*service.ClearResult, error)
	ClearCache() int
}

type RAGHandler struct {
	svc RAGService
}

func NewRAGHandler(svc RAGService) *RAGHandler {
	return &RAGHandler{svc: svc}
}

type IndexRequest struct {
	TranscriptText string           `json:"transcript_text"`
	Segments       []domain.Segment `json:"segments,omitempty"`
}

type QueryRequest struct {
	Question string `json:"question"`
}

type ChunksResponse struct {
	Chunks  []domain.StoredChunk `json:"chunks"`
	Total   int                  `json:"total"`
	Cursor  string               `json:"cursor,omitempty"`
	HasMore bool                 `json:"has_more"`
}

type CacheClearResponse struct {
	Cleared int `json:"cleared"`
}

func (h *RAGHandler) Index(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.BuildIndex(r.Context(), service.BuildInput{
		TranscriptText: req.TranscriptText,
		Segments:       req.Segments,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// Query answers a question. Not-indexed and off-topic questions are normal
// 200 responses distinguished by outcome.
func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.Query(r.Context(), req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

func (h *RAGHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}

// Chunks lists indexed chunks in build order. Without ?limit every chunk is
// returned; with it, pages are linked by an opaque ?cursor.
func (h *RAGHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			api.HandleError(w, domain.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	chunks, err := h.svc.ListChunks(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	page, err := pagination.Page(chunks, limit, r.URL.Query().Get("cursor"), func(c domain.StoredChunk) string { return c.ID })
	if err != nil {
		if errors.Is(err, pagination.ErrStaleCursor) {
			api.HandleError(w, domain.NewValidationError("cursor is stale, the index has changed"))
			return
		}
		api.HandleError(w, domain.NewValidationError("invalid cursor"))
		return
	}

	api.Success(w, http.StatusOK, ChunksResponse{
		Chunks:  page.Items,
		Total:   len(chunks),
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func (h *RAGHandler) Clear(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ClearIndex(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

func (h *RAGHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, CacheClearResponse{Cleared: h.svc.ClearCache()})
}
