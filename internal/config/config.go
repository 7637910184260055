package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Index backends.
const (
	BackendSQLite   = "sqlite"
	BackendPGVector = "pgvector"
	BackendMilvus   = "milvus"
	BackendMemory   = "memory"
)

type Config struct {
	Port         string `envconfig:"PORT" default:"8080"`
	Debug        bool   `envconfig:"DEBUG" default:"false"`
	MaxBodyBytes int64  `envconfig:"MAX_BODY_BYTES" default:"10485760"`
	APIToken     string `envconfig:"API_TOKEN"`

	IndexBackend string `envconfig:"INDEX_BACKEND" default:"sqlite"`
	DataDir      string `envconfig:"DATA_DIR" default:"./data/index"`
	Collection   string `envconfig:"COLLECTION" default:"transcript_chunks"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	MilvusAddr     string `envconfig:"MILVUS_ADDR" default:"localhost:19530"`
	MilvusUsername string `envconfig:"MILVUS_USERNAME"`
	MilvusPassword string `envconfig:"MILVUS_PASSWORD"`
	MilvusAPIKey   string `envconfig:"MILVUS_API_KEY"`

	// OpenAI-compatible endpoint used for remote embeddings and generation.
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	GenerationModel string `envconfig:"GENERATION_MODEL" default:"gpt-4o-mini"`

	OllamaURL            string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	OllamaEmbeddingModel string `envconfig:"OLLAMA_EMBEDDING_MODEL" default:"all-minilm"`
	LocalFallback        bool   `envconfig:"LOCAL_FALLBACK" default:"true"`

	EmbedTimeout    time.Duration `envconfig:"EMBED_TIMEOUT" default:"30s"`
	GenerateTimeout time.Duration `envconfig:"GENERATE_TIMEOUT" default:"60s"`
	TopK            int           `envconfig:"TOP_K" default:"5"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TRANSCRIPTRAG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = cfg.GeminiAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the selected index backend has what it needs.
func (c *Config) Validate() error {
	switch c.IndexBackend {
	case BackendSQLite:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the %s backend", c.IndexBackend)
		}
	case BackendPGVector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", c.IndexBackend)
		}
	case BackendMilvus:
		if c.MilvusAddr == "" {
			return fmt.Errorf("MILVUS_ADDR is required for the %s backend", c.IndexBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown INDEX_BACKEND %q", c.IndexBackend)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	return nil
}

func (c *Config) HasRemoteEmbeddings() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasLocalFallback() bool {
	return c.LocalFallback && c.OllamaURL != ""
}

func (c *Config) HasGeneration() bool {
	return c.OpenAIAPIKey != "" && c.GenerationModel != ""
}
