package vote

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// versionTTL bounds how long a version marker lives. It must outlive every
// count key it guards so an expired marker can never point a reader back at
// a superseded count.
const versionTTL = 24 * time.Hour

// Cache keeps per-period collection vote counts in Redis. The counts are
// derived data; the ledger rows stay the source of truth. Count keys carry a
// version number that Invalidate bumps after every toggle, so a fill that
// raced the toggle writes under the old version and is never read again.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func countKey(collectionID, monthYear string, version int64) string {
	return fmt.Sprintf("votes:count:%s:%s:v%d", monthYear, collectionID, version)
}

func versionKey(collectionID, monthYear string) string {
	return fmt.Sprintf("votes:countver:%s:%s", monthYear, collectionID)
}

// Count loads a cached count or populates it using the loader.
func (c *Cache) Count(ctx context.Context, collectionID, monthYear string, loader func(context.Context) (int, error)) (int, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	version, err := c.client.Get(ctx, versionKey(collectionID, monthYear)).Int64()
	if err != nil && err != redis.Nil {
		// Degrade to the live aggregate on cache trouble.
		return loader(ctx)
	}

	key := countKey(collectionID, monthYear, version)
	cached, err := c.client.Get(ctx, key).Int()
	if err == nil {
		return cached, nil
	}
	if err != redis.Nil {
		return loader(ctx)
	}

	count, err := loader(ctx)
	if err != nil {
		return 0, err
	}
	_ = c.client.Set(ctx, key, count, c.ttl).Err()
	return count, nil
}

// Invalidate bumps the version for one collection in one period. Fills that
// already loaded the old version keep writing under it; fresh reads only
// ever see the new version.
func (c *Cache) Invalidate(ctx context.Context, collectionID, monthYear string) {
	if c == nil || c.client == nil {
		return
	}
	key := versionKey(collectionID, monthYear)
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		return
	}
	_ = c.client.Expire(ctx, key, versionTTL).Err()
}
