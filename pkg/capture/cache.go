package capture

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a cached frame stays fresh when no TTL is given.
const DefaultTTL = time.Second

// Cache wraps a Capturer and reuses the last frame while it is younger than
// the TTL. Rapid re-asks in the overlay then cost one real capture.
type Cache struct {
	mu    sync.Mutex
	inner Capturer
	ttl   time.Duration
	shot  Shot
	taken time.Time

	now func() time.Time
}

// Cached wraps inner with a TTL cache. A non-positive ttl uses DefaultTTL.
func Cached(inner Capturer, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{inner: inner, ttl: ttl, now: time.Now}
}

func (c *Cache) Capture(ctx context.Context) (Shot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.shot.Empty() && c.now().Sub(c.taken) < c.ttl {
		return c.shot, nil
	}

	shot, err := c.inner.Capture(ctx)
	if err != nil {
		// A failed refresh never serves the stale frame.
		return Shot{}, err
	}

	c.shot = shot
	c.taken = c.now()
	return shot, nil
}
