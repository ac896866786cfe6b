package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/tickerpulse/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "tickerpulse:cache:"

// Cache is a domain.Cache shared across instances.
type Cache struct {
	rdb *goredis.Client
}

var _ domain.Cache = (*Cache)(nil)

func NewCache(c *Client) *Cache {
	return &Cache{rdb: c.rdb}
}

// Get returns the value under key. A missing or expired key is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value for ttl. A non-positive ttl deletes the key.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var err error
	if ttl <= 0 {
		err = c.rdb.Del(ctx, keyPrefix+key).Err()
	} else {
		err = c.rdb.Set(ctx, keyPrefix+key, value, ttl).Err()
	}
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
