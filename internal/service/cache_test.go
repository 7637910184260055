package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_Deterministic(t *testing.T) {
	sum := sha256.Sum256([]byte("summary_en:hello"))
	expected := hex.EncodeToString(sum[:])

	assert.Equal(t, expected, CacheKey("summary_en", "hello"))
	assert.Equal(t, CacheKey("summary_en", "hello"), CacheKey("summary_en", "hello"))
	assert.NotEqual(t, CacheKey("summary_en", "hello"), CacheKey("summary_mm", "hello"))
	assert.NotEqual(t, CacheKey("summary_en", "hello"), CacheKey("summary_en", "hello "))
	assert.Len(t, CacheKey("", ""), 64)
}

func TestAnswerCache_ComputeOrFetch_Idempotent(t *testing.T) {
	cache := NewAnswerCache()
	ctx := context.Background()
	calls := 0
	compute := func(ctx context.Context) (any, error) {
		calls++
		return "answer", nil
	}

	first, hit, _, err := cache.ComputeOrFetch(ctx, OpRAGAnswer, "rag:q", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "answer", first)

	second, hit, elapsed, err := cache.ComputeOrFetch(ctx, OpRAGAnswer, "rag:q", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Zero(t, elapsed)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestAnswerCache_ErrorsNotCached(t *testing.T) {
	cache := NewAnswerCache()
	ctx := context.Background()
	calls := 0

	_, _, _, err := cache.ComputeOrFetch(ctx, OpTranslate, "x", func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("upstream down")
	})
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	value, hit, _, err := cache.ComputeOrFetch(ctx, OpTranslate, "x", func(ctx context.Context) (any, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 2, calls)
}

func TestAnswerCache_Clear(t *testing.T) {
	cache := NewAnswerCache()
	cache.Set(OpSummaryEnglish, "a", "1")
	cache.Set(OpSummaryBurmese, "a", "2")

	assert.Equal(t, 2, cache.Clear())
	assert.Equal(t, 0, cache.Len())

	_, ok := cache.Get(OpSummaryEnglish, "a")
	assert.False(t, ok)
}

func TestAnswerCache_ConcurrentAccess(t *testing.T) {
	cache := NewAnswerCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, _ = cache.ComputeOrFetch(ctx, OpRAGAnswer, "same", func(ctx context.Context) (any, error) {
				return "v", nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Len())
}

func TestMemoize_Typed(t *testing.T) {
	cache := NewAnswerCache()
	ctx := context.Background()

	value, hit, _, err := Memoize(ctx, cache, OpSummaryEnglish, "text", func(ctx context.Context) (string, error) {
		return "summary", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "summary", value)

	value, hit, elapsed, err := Memoize(ctx, cache, OpSummaryEnglish, "text", func(ctx context.Context) (string, error) {
		t.Fatal("should not recompute")
		return "", nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Zero(t, elapsed)
	assert.Equal(t, "summary", value)
}

func TestMemoize_WrongTypeIsMiss(t *testing.T) {
	cache := NewAnswerCache()
	cache.Set(OpTranslate, "text", 42)

	value, hit, _, err := Memoize(context.Background(), cache, OpTranslate, "text", func(ctx context.Context) (string, error) {
		return "translated", nil
	})

	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "translated", value)
}
