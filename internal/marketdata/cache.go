package marketdata

import (
	"sync"
	"time"

	"github.com/aristath/pricewatch/internal/domain"
)

type cacheEntry struct {
	pp domain.PricePoint
	ts time.Time
}

// PriceCache holds the last successful PricePoint per symbol.
// Failures are never cached.
type PriceCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

// NewPriceCache creates a cache whose entries are served while now - ts <= ttl
func NewPriceCache(ttl time.Duration) *PriceCache {
	return &PriceCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns a copy of the cached PricePoint if it is still fresh at now
func (c *PriceCache) Get(symbol string, now time.Time) (domain.PricePoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[domain.NormalizeSymbol(symbol)]
	if !ok || now.Sub(e.ts) > c.ttl {
		return domain.PricePoint{}, false
	}
	return copyPricePoint(e.pp), true
}

// Set stores pp for symbol, stamped at now
func (c *PriceCache) Set(symbol string, pp domain.PricePoint, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[domain.NormalizeSymbol(symbol)] = cacheEntry{pp: copyPricePoint(pp), ts: now}
}

// Len returns the number of cached symbols, fresh or stale
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func copyPricePoint(pp domain.PricePoint) domain.PricePoint {
	closes := make([]float64, len(pp.Closes))
	copy(closes, pp.Closes)
	return domain.PricePoint{Last: pp.Last, Closes: closes}
}
