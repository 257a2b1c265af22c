// Package zonecache caches active disaster zones for a short TTL so every
// dispatch does not hit the zone store. Zones change on feed-poll cadence,
// which is far slower than dispatch cadence.
package zonecache

import (
	"context"
	"sync"
	"time"

	"github.com/Effec77/aidflow/core/dispatch"
	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/core/timing"
)

// Cache wraps a dispatch.ZoneSource with a TTL cache.
type Cache struct {
	src   dispatch.ZoneSource
	ttl   time.Duration
	clock timing.Clock

	mu      sync.Mutex
	zones   []model.DisasterZone
	loaded  bool
	expires time.Time
}

// New creates a Cache. A non-positive ttl defaults to 30 seconds.
func New(src dispatch.ZoneSource, ttl time.Duration, clock timing.Clock) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if clock == nil {
		clock = timing.RealClock{}
	}
	return &Cache{src: src, ttl: ttl, clock: clock}
}

// ActiveZones returns the cached zones, refreshing from the source when the
// TTL has passed. A failed refresh serves stale data rather than failing the
// caller, as long as something was loaded before.
func (c *Cache) ActiveZones(ctx context.Context) ([]model.DisasterZone, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.loaded && now.Before(c.expires) {
		return c.zones, nil
	}

	zones, err := c.src.ActiveZones(ctx)
	if err != nil {
		if c.loaded {
			return c.zones, nil
		}
		return nil, err
	}
	c.zones = zones
	c.loaded = true
	c.expires = now.Add(c.ttl)
	return c.zones, nil
}

// Invalidate drops the cached zones so the next read refreshes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}
