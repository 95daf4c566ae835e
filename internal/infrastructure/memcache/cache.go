package memcache

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcachedCache implements ports.Cache on a memcached cluster. This is the
// backend the hosted deployment uses (ElastiCache behind a configuration
// endpoint).
type MemcachedCache struct {
	mc *memcache.Client
}

// New creates a memcached-backed cache from one or more server addresses.
func New(servers ...string) *MemcachedCache {
	return &MemcachedCache{mc: memcache.New(servers...)}
}

// Get implements Cache.Get. A miss is not an error.
func (c *MemcachedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item, err := c.mc.Get(key)
	if err == memcache.ErrCacheMiss {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item.Value, true, nil
}

// Set implements Cache.Set. Memcached expirations are whole seconds.
func (c *MemcachedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.mc.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(ttl / time.Second),
	})
}

// Delete implements Cache.Delete; deleting an absent key succeeds.
func (c *MemcachedCache) Delete(ctx context.Context, key string) error {
	if err := c.mc.Delete(key); err != nil && err != memcache.ErrCacheMiss {
		return err
	}
	return nil
}

// Ping verifies connectivity for health checks.
func (c *MemcachedCache) Ping() error {
	return c.mc.Ping()
}
