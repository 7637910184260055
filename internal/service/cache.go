package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Cache operations. Each names a distinct kind of memoized result.
const (
	OpRAGAnswer       = "rag_answer"
	OpTranslate       = "translate_my"
	OpSummaryEnglish  = "summary_en"
	OpSummaryBurmese  = "summary_mm"
	ragCacheKeyPrefix = "rag:"
)

// CacheKey is the hex SHA-256 of "operation:input".
func CacheKey(operation, input string) string {
	sum := sha256.Sum256([]byte(operation + ":" + input))
	return hex.EncodeToString(sum[:])
}

// AnswerCache memoizes expensive model results for the life of the process.
// Entries are never evicted; Clear drops everything. Concurrent misses on the
// same key both compute and the last write wins.
type AnswerCache struct {
	mu      sync.Mutex
	entries map[string]any
}

func NewAnswerCache() *AnswerCache {
	return &AnswerCache{entries: make(map[string]any)}
}

func (c *AnswerCache) Get(operation, input string) (any, bool) {
	key := CacheKey(operation, input)
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	return value, ok
}

func (c *AnswerCache) Set(operation, input string, value any) {
	key := CacheKey(operation, input)
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

// ComputeOrFetch returns the cached value for (operation, input) with zero
// elapsed time, or runs compute, stores a successful result and reports how
// long it took. Failed computations are not cached.
func (c *AnswerCache) ComputeOrFetch(
	ctx context.Context,
	operation, input string,
	compute func(ctx context.Context) (any, error),
) (any, bool, time.Duration, error) {
	if value, ok := c.Get(operation, input); ok {
		return value, true, 0, nil
	}

	start := time.Now()
	value, err := compute(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return nil, false, elapsed, err
	}

	c.Set(operation, input, value)
	return value, false, elapsed, nil
}

// Clear drops every entry and returns how many there were.
func (c *AnswerCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]any)
	return n
}

func (c *AnswerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Memoize is a typed ComputeOrFetch. A cached value of another type is
// treated as a miss.
func Memoize[T any](
	ctx context.Context,
	c *AnswerCache,
	operation, input string,
	compute func(ctx context.Context) (T, error),
) (T, bool, time.Duration, error) {
	if value, ok := c.Get(operation, input); ok {
		if typed, ok := value.(T); ok {
			return typed, true, 0, nil
		}
	}

	start := time.Now()
	value, err := compute(ctx)
	elapsed := time.Since(start)
	if err != nil {
		var zero T
		return zero, false, elapsed, err
	}

	c.Set(operation, input, value)
	return value, false, elapsed, nil
}
