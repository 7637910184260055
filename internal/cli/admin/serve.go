package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/transcriptrag/internal/api/handlers"
	"github.com/cloo-solutions/transcriptrag/internal/api/middleware"
	"github.com/cloo-solutions/transcriptrag/internal/config"
	"github.com/cloo-solutions/transcriptrag/internal/database"
	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/cloo-solutions/transcriptrag/internal/ollama"
	"github.com/cloo-solutions/transcriptrag/internal/openai"
	"github.com/cloo-solutions/transcriptrag/internal/repository"
	"github.com/cloo-solutions/transcriptrag/internal/server"
	"github.com/cloo-solutions/transcriptrag/internal/service"
	"github.com/cloo-solutions/transcriptrag/internal/storage"
	"github.com/cloo-solutions/transcriptrag/internal/telemetry"
	gopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the transcriptrag API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().String("backend", "", "Index backend: sqlite, pgvector, milvus or memory (overrides TRANSCRIPTRAG_INDEX_BACKEND)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.IndexBackend = backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")

	startCtx, startSpan := telemetry.StartTransaction(ctx, "open "+cfg.IndexBackend+" index", "serve.startup")
	index, closeIndex, err := openIndex(startCtx, cfg, !noMigrate)
	if err != nil {
		startSpan.SetError(err)
		startSpan.End()
		return err
	}
	startSpan.End()
	defer closeIndex()
	log.Printf("index backend: %s (collection %s)", cfg.IndexBackend, cfg.Collection)

	embedder, generator := newProviders(cfg)
	if generator == nil {
		log.Println("no generation API key set: questions and translations will fail until one is configured")
	}

	cache := service.NewAnswerCache()
	retrievalSvc := service.NewRetrievalServiceWithConfig(index, embedder, generator, cache, service.NewRanker(), service.RetrievalConfig{
		TopK:       cfg.TopK,
		Collection: cfg.Collection,
		Backend:    cfg.IndexBackend,
	})
	languageSvc := service.NewLanguageService(generator, cache)

	routerCfg := server.RouterConfig{
		RAGHandler:   handlers.NewRAGHandler(retrievalSvc),
		LLMHandler:   handlers.NewLLMHandler(languageSvc),
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	if cfg.APIToken != "" {
		routerCfg.AuthValidator = middleware.NewStaticTokenValidator(cfg.APIToken)
	} else {
		log.Println("TRANSCRIPTRAG_API_TOKEN not set: API is open")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(routerCfg),
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// openIndex connects the configured vector index backend. The returned
// func releases everything the backend opened.
func openIndex(ctx context.Context, cfg *config.Config, migrate bool) (service.VectorIndex, func(), error) {
	switch cfg.IndexBackend {
	case config.BackendSQLite:
		index, err := storage.NewSQLiteIndex(cfg.DataDir, cfg.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite index: %w", err)
		}
		return index, closer(index), nil

	case config.BackendPGVector:
		if migrate {
			if _, err := database.Migrate(cfg.DatabaseURL); err != nil {
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		pool, err := database.NewPool(ctx, database.Config{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("connected to database")
		return repository.NewCollectionRepository(pool, cfg.Collection), pool.Close, nil

	case config.BackendMilvus:
		index, err := storage.NewMilvusIndex(ctx, storage.MilvusConfig{
			Address:    cfg.MilvusAddr,
			Username:   cfg.MilvusUsername,
			Password:   cfg.MilvusPassword,
			APIKey:     cfg.MilvusAPIKey,
			Collection: cfg.Collection,
		})
		if err != nil {
			return nil, nil, err
		}
		return index, closer(index), nil

	case config.BackendMemory:
		index := storage.NewMemoryIndex()
		return index, closer(index), nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrUnknownIndexBackend, cfg.IndexBackend)
	}
}

func closer(index service.VectorIndex) func() {
	return func() {
		if err := index.Close(); err != nil {
			log.Printf("closing index: %v", err)
		}
	}
}

// newProviders builds the embedding fallback chain and the generator from
// the configured API keys. Missing providers stay nil.
func newProviders(cfg *config.Config) (*service.FallbackEmbedder, service.Generator) {
	var primary, secondary service.Embedder
	var generator service.Generator

	if cfg.HasRemoteEmbeddings() || cfg.HasGeneration() {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			EmbeddingModel:  gopenai.EmbeddingModel(cfg.EmbeddingModel),
			GenerationModel: cfg.GenerationModel,
			EmbedTimeout:    cfg.EmbedTimeout,
			GenerateTimeout: cfg.GenerateTimeout,
		})
		if cfg.HasRemoteEmbeddings() {
			primary = client
		}
		if cfg.HasGeneration() {
			generator = client
		}
	}

	if cfg.HasLocalFallback() {
		secondary = ollama.NewClient(cfg.OllamaURL, cfg.OllamaEmbeddingModel, cfg.EmbedTimeout)
	}

	return service.NewFallbackEmbedder(primary, secondary), generator
}
