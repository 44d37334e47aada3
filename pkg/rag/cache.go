package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// cachedResult is the value stored for a completed query.
type cachedResult struct {
	answer  string
	sources []RetrievedDoc
}

// queryCache is a fixed-capacity FIFO cache keyed by query digest.
// Eviction is strictly insertion-ordered: a cache hit does not refresh an
// entry's position. The cache is process-lifetime only.
type queryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]cachedResult
	order    []string
}

func newQueryCache(capacity int) *queryCache {
	return &queryCache{
		capacity: capacity,
		entries:  make(map[string]cachedResult, capacity),
	}
}

// cacheKey derives the digest for a query. The key covers the normalized
// question text, k, and whether sources were requested, so callers with
// different response shapes never share an entry.
func cacheKey(question string, k int, returnSources bool) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d_%t", normalized, k, returnSources)))
	return hex.EncodeToString(sum[:])
}

func (c *queryCache) get(key string) (cachedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *queryCache) put(key string, r cachedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = r
		return
	}

	if len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = r
	c.order = append(c.order, key)
}

func (c *queryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedResult, c.capacity)
	c.order = nil
}

func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
