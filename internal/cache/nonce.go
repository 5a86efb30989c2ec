package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceCachePrefix is the key prefix for seen (device, nonce) pairs.
const NonceCachePrefix = "nonce:"

// NonceCache remembers (device, nonce) pairs for the signature freshness
// window so a captured request cannot be replayed. Entries self-evict when
// the window passes; a timestamp that old is rejected independently, so
// eviction is safe. The interface enables testing with an in-memory fake.
type NonceCache interface {
	// Remember records the pair and reports whether it was first use.
	// false means the nonce was already seen within the window.
	Remember(ctx context.Context, deviceID, nonce string, window time.Duration) (bool, error)
}

type redisNonceCache struct {
	client *redis.Client
}

// NewRedisNonceCache creates a NonceCache backed by Redis SET NX with TTL.
func NewRedisNonceCache(client *redis.Client) NonceCache {
	return &redisNonceCache{client: client}
}

func (c *redisNonceCache) Remember(ctx context.Context, deviceID, nonce string, window time.Duration) (bool, error) {
	key := NonceCachePrefix + deviceID + ":" + nonce
	ok, err := c.client.SetNX(ctx, key, "1", window).Result()
	if err != nil {
		return false, fmt.Errorf("nonce cache setnx: %w", err)
	}
	return ok, nil
}
