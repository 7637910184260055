package admin

import (
	"context"
	"testing"

	"github.com/cloo-solutions/transcriptrag/internal/config"
	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/cloo-solutions/transcriptrag/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		index, closeIndex, err := openIndex(ctx, &config.Config{IndexBackend: config.BackendMemory}, false)
		require.NoError(t, err)
		defer closeIndex()

		assert.IsType(t, &storage.MemoryIndex{}, index)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.Config{
			IndexBackend: config.BackendSQLite,
			DataDir:      t.TempDir(),
			Collection:   "lessons",
		}
		index, closeIndex, err := openIndex(ctx, cfg, false)
		require.NoError(t, err)
		defer closeIndex()

		exists, err := index.Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := openIndex(ctx, &config.Config{IndexBackend: "chroma"}, false)
		assert.ErrorIs(t, err, domain.ErrUnknownIndexBackend)
		assert.Contains(t, err.Error(), `"chroma"`)
	})
}

func TestNewProviders(t *testing.T) {
	t.Run("nothing configured", func(t *testing.T) {
		embedder, generator := newProviders(&config.Config{})
		assert.Nil(t, generator)
		assert.Equal(t, "none", embedder.Name())
	})

	t.Run("remote with local fallback", func(t *testing.T) {
		embedder, generator := newProviders(&config.Config{
			OpenAIAPIKey:         "sk-test",
			GenerationModel:      "gpt-4o-mini",
			EmbeddingModel:       "text-embedding-3-small",
			LocalFallback:        true,
			OllamaURL:            "http://localhost:11434",
			OllamaEmbeddingModel: "all-minilm",
		})
		assert.NotNil(t, generator)
		assert.Equal(t, "openai/text-embedding-3-small", embedder.Name())
	})

	t.Run("local only", func(t *testing.T) {
		embedder, generator := newProviders(&config.Config{
			LocalFallback: true,
			OllamaURL:     "http://localhost:11434",
		})
		assert.Nil(t, generator)
		assert.Equal(t, "ollama/all-minilm", embedder.Name())
	})
}
