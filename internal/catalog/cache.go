package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Getter is the lookup the cached layer wraps.
type Getter interface {
	Get(ctx context.Context, productID string) (*Product, error)
}

// CachedStore is a read-through Redis cache in front of the catalog store.
// Cache errors degrade to a direct store read; they never fail a lookup.
type CachedStore struct {
	inner  Getter
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedStore wraps inner with a Redis cache at addr.
func NewCachedStore(inner Getter, addr string, ttl time.Duration, logger *zap.Logger) *CachedStore {
	return &CachedStore{
		inner:  inner,
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedStore) key(productID string) string {
	return fmt.Sprintf("catalog:product:%s", productID)
}

// Get returns the cached product when present, otherwise reads through to the
// store and caches the result. Only found products are cached; absence is not.
func (c *CachedStore) Get(ctx context.Context, productID string) (*Product, error) {
	cached, err := c.client.Get(ctx, c.key(productID)).Result()
	if err == nil {
		var p Product
		if uerr := json.Unmarshal([]byte(cached), &p); uerr == nil {
			return &p, nil
		}
		// unreadable entry: fall through to the store and overwrite below
	} else if err != redis.Nil {
		c.logger.Warn("catalog cache read failed", zap.String("product_id", productID), zap.Error(err))
	}

	p, err := c.inner.Get(ctx, productID)
	if err != nil || p == nil {
		return p, err
	}

	if raw, merr := json.Marshal(p); merr == nil {
		if serr := c.client.Set(ctx, c.key(productID), raw, c.ttl).Err(); serr != nil {
			c.logger.Warn("catalog cache write failed", zap.String("product_id", productID), zap.Error(serr))
		}
	}
	return p, nil
}
