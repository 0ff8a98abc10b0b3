package media

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type cacheEntry struct {
	metadata Metadata
	expires  time.Time
}

// CachingProvider wraps another Provider with a TTL-based in-memory cache.
// Failed probes are not cached.
type CachingProvider struct {
	base  Provider
	ttl   time.Duration
	clock clockwork.Clock

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingProvider returns a Provider that caches probes for the provided TTL.
func NewCachingProvider(base Provider, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProvider{
		base:  base,
		ttl:   ttl,
		clock: clockwork.NewRealClock(),
		items: make(map[string]cacheEntry),
	}
}

// WithClock swaps the time source; tests pass a fake clock.
func (c *CachingProvider) WithClock(clock clockwork.Clock) *CachingProvider {
	c.clock = clock
	return c
}

// Probe returns cached metadata when available, otherwise it delegates to the
// underlying provider and stores the result.
func (c *CachingProvider) Probe(ctx context.Context, uri string) (Metadata, error) {
	if c == nil || c.base == nil {
		return Metadata{}, ErrProviderUnavailable
	}

	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.items[uri]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.metadata, nil
	}

	metadata, err := c.base.Probe(ctx, uri)
	if err != nil {
		return Metadata{}, err
	}

	c.mu.Lock()
	for key, e := range c.items {
		if !now.Before(e.expires) {
			delete(c.items, key)
		}
	}
	c.items[uri] = cacheEntry{metadata: metadata, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return metadata, nil
}
