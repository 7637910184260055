package server

import (
	"net/http"

	"github.com/cloo-solutions/transcriptrag/internal/api"
	"github.com/cloo-solutions/transcriptrag/internal/api/handlers"
	"github.com/cloo-solutions/transcriptrag/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

const defaultMaxBodyBytes int64 = 10 * 1024 * 1024

type RouterConfig struct {
	// AuthValidator guards /api when set; nil leaves the API open.
	AuthValidator middleware.AuthValidator
	RAGHandler    *handlers.RAGHandler
	LLMHandler    *handlers.LLMHandler
	MaxBodyBytes  int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if cfg.AuthValidator != nil {
			r.Use(middleware.APIKeyAuth(cfg.AuthValidator))
		}

		r.Route("/rag", func(r chi.Router) {
			r.Post("/index", cfg.RAGHandler.Index)
			r.Delete("/index", cfg.RAGHandler.Clear)
			r.Post("/query", cfg.RAGHandler.Query)
			r.Get("/stats", cfg.RAGHandler.Stats)
			r.Get("/chunks", cfg.RAGHandler.Chunks)
		})

		if cfg.LLMHandler != nil {
			r.Route("/llm", func(r chi.Router) {
				r.Post("/translate", cfg.LLMHandler.Translate)
				r.Post("/summarize", cfg.LLMHandler.Summarize)
			})
		}

		r.Delete("/cache", cfg.RAGHandler.ClearCache)
	})

	return r
}
