package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	seenKeyPrefix  = "bidwatch:seen:"
	defaultSeenTTL = 7 * 24 * time.Hour
)

// SeenCache is a best-effort Redis set of recently ingested external IDs.
// It saves a database round-trip for announcements that keep reappearing in
// every upstream batch. The bids table unique constraint stays the
// authority: a cache miss or Redis outage only costs an extra no-op insert.
type SeenCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeenCache returns a cache on rdb with the default retention.
func NewSeenCache(rdb *redis.Client) *SeenCache {
	return &SeenCache{rdb: rdb, ttl: defaultSeenTTL}
}

// Seen reports whether externalID was marked recently. Redis errors read as
// "not seen" so ingestion never depends on cache availability.
func (c *SeenCache) Seen(ctx context.Context, externalID string) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	n, err := c.rdb.Exists(ctx, seenKeyPrefix+externalID).Result()
	return err == nil && n > 0
}

// Mark records externalID for the cache TTL. Failures are ignored.
func (c *SeenCache) Mark(ctx context.Context, externalID string) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Set(ctx, seenKeyPrefix+externalID, "1", c.ttl)
}
