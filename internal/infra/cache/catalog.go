package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/infra/retry"
)

const (
	categoriesKey = "catalog:categories"
	barbersKey    = "catalog:barbers"
)

// CatalogCache keeps the catalog in Redis for ttl and falls back to next,
// with bounded retries, on a miss. A Redis outage degrades to reading
// through.
type CatalogCache struct {
	next   domain.CatalogStore
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewCatalogCache(next domain.CatalogStore, client *redis.Client, ttl time.Duration, log *zap.Logger) *CatalogCache {
	return &CatalogCache{next: next, client: client, ttl: ttl, log: log}
}

var _ domain.CatalogStore = (*CatalogCache)(nil)

func (c *CatalogCache) Categories(ctx context.Context) (map[string]domain.Category, error) {
	return cached(ctx, c, categoriesKey, c.next.Categories)
}

func (c *CatalogCache) Barbers(ctx context.Context) (map[string]domain.Resource, error) {
	return cached(ctx, c, barbersKey, c.next.Barbers)
}

// Invalidate drops both entries so the next read goes to the database.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, categoriesKey, barbersKey).Err()
}

func cached[T any](
	ctx context.Context,
	c *CatalogCache,
	key string,
	load func(context.Context) (T, error),
) (T, error) {

	var out T
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jerr := json.Unmarshal(data, &out); jerr == nil {
			return out, nil
		}
		c.log.Warn("catalog cache entry unreadable", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("catalog cache unavailable", zap.String("key", key), zap.Error(err))
	}

	out, err = retry.Read(ctx, retry.DefaultTries, func() (T, error) {
		return load(ctx)
	})
	if err != nil {
		return out, err
	}

	if b, err := json.Marshal(out); err == nil {
		if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}
