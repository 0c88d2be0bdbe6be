package catalog

import (
	"strings"
	"sync"
	"time"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

const (
	cacheTTL     = 2 * time.Minute
	maxCacheSize = 100
)

type cacheEntry struct {
	products []domain.Product
	storedAt time.Time
}

// searchCache is a small TTL cache for search results. When full, the entry
// that was inserted first is evicted, regardless of access pattern.
type searchCache struct {
	clock domain.CurrentTimeProvider

	mu      sync.Mutex
	entries map[string]cacheEntry
	order   []string
}

func newSearchCache(clock domain.CurrentTimeProvider) *searchCache {
	return &searchCache{
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(keyword, zipCode string) string {
	return strings.ToLower(strings.TrimSpace(keyword)) + "|" + zipCode
}

func (c *searchCache) get(keyword, zipCode string) ([]domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(keyword, zipCode)
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(entry.storedAt) > cacheTTL {
		delete(c.entries, key)
		return nil, false
	}
	return entry.products, true
}

func (c *searchCache) set(keyword, zipCode string, products []domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(keyword, zipCode)
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry{products: products, storedAt: c.clock.Now()}

	for len(c.entries) > maxCacheSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
