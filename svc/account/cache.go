package account

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/photovault/photovault/pkg/cache"
	"github.com/photovault/photovault/pkg/redis"
)

var errStatusCacheMiss = errors.New("account status not cached")

// RedisStatusCache caches effective statuses in Redis.
type RedisStatusCache struct {
	cache *redis.JSONCache[Status]
}

// NewRedisStatusCache stores statuses under prefix with the given ttl.
func NewRedisStatusCache(client goredis.UniversalClient, prefix string, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{cache: redis.NewJSONCache[Status](client, prefix+"account-status:", ttl)}
}

func (c *RedisStatusCache) Get(ctx context.Context, key string) (Status, error) {
	return c.cache.Get(ctx, key)
}

func (c *RedisStatusCache) Set(ctx context.Context, key string, status Status) error {
	return c.cache.Set(ctx, key, status)
}

func (c *RedisStatusCache) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// MemoryStatusCache keeps statuses in process. It only suits a single
// instance since invalidations are not shared.
type MemoryStatusCache struct {
	lru *cache.LRU[string, Status]
}

// NewMemoryStatusCache keeps up to capacity statuses for ttl each.
func NewMemoryStatusCache(capacity int, ttl time.Duration) *MemoryStatusCache {
	return &MemoryStatusCache{lru: cache.NewLRU[string, Status](capacity, cache.WithTTL(ttl))}
}

func (c *MemoryStatusCache) Get(_ context.Context, key string) (Status, error) {
	st, ok := c.lru.Get(key)
	if !ok {
		return "", errStatusCacheMiss
	}
	return st, nil
}

func (c *MemoryStatusCache) Set(_ context.Context, key string, status Status) error {
	c.lru.Set(key, status)
	return nil
}

func (c *MemoryStatusCache) Delete(_ context.Context, key string) error {
	c.lru.Delete(key)
	return nil
}
