package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/transcriptrag/internal/api"
	"github.com/cloo-solutions/transcriptrag/internal/service"
)

type LanguageService interface {
	Translate(ctx context.Context, text string) (*service.Translation, error)
	Summarize(ctx context.Context, text string) (*service.Summary, error)
}

type LLMHandler struct {
	svc LanguageService
}

func NewLLMHandler(svc LanguageService) *LLMHandler {
	return &LLMHandler{svc: svc}
}

type TranscriptRequest struct {
	TranscriptText string `json:"transcript_text"`
}

func (h *LLMHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.Translate(r.Context(), req.TranscriptText)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

func (h *LLMHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.Summarize(r.Context(), req.TranscriptText)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
