package stats

import (
	"context"
	"sync"
	"time"

	"github.com/tutorhub/backend/internal/models"
)

type cacheEntry struct {
	stats   models.OwnerStats
	expires time.Time
}

// CachingProvider wraps another Provider with a TTL-based in-memory cache.
// Dashboard numbers tolerate being a little stale.
type CachingProvider struct {
	base Provider
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingProvider returns a Provider that caches lookups for the provided TTL.
func NewCachingProvider(base Provider, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProvider{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// Lookup returns cached stats when available, otherwise it delegates to the
// underlying provider and stores the result.
func (c *CachingProvider) Lookup(ctx context.Context, ownerID string) (models.OwnerStats, error) {
	if c == nil || c.base == nil {
		return models.OwnerStats{}, ErrProviderUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[ownerID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.stats, nil
	}

	stats, err := c.base.Lookup(ctx, ownerID)
	if err != nil {
		return models.OwnerStats{}, err
	}

	c.mu.Lock()
	c.items[ownerID] = cacheEntry{stats: stats, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return stats, nil
}

// Invalidate drops the cached entry for one owner, forcing the next lookup
// to recompute. Called after uploads and deletions.
func (c *CachingProvider) Invalidate(ownerID string) {
	c.mu.Lock()
	delete(c.items, ownerID)
	c.mu.Unlock()
}
