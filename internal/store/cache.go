package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/redis/go-redis/v9"
)

// Cache holds extracted ChunkSets by content hash so repeated uploads of
// the same PDF skip extraction.
type Cache interface {
	Get(ctx context.Context, hash string) (*chunkset.ChunkSet, bool, error)
	Set(ctx context.Context, hash string, cs *chunkset.ChunkSet) error
	Delete(ctx context.Context, hash string) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*chunkset.ChunkSet, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, string, *chunkset.ChunkSet) error         { return nil }
func (NopCache) Delete(context.Context, string) error                          { return nil }

// MemoryCache keeps up to max ChunkSets, evicting the oldest insert first.
type MemoryCache struct {
	mu    sync.Mutex
	max   int
	order []string
	items map[string]*chunkset.ChunkSet
}

func NewMemoryCache(max int) *MemoryCache {
	if max <= 0 {
		max = 32
	}
	return &MemoryCache{max: max, items: make(map[string]*chunkset.ChunkSet)}
}

func (c *MemoryCache) Get(_ context.Context, hash string) (*chunkset.ChunkSet, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.items[hash]
	return cs, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, hash string, cs *chunkset.ChunkSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[hash]; !ok {
		c.order = append(c.order, hash)
	}
	c.items[hash] = cs
	for len(c.order) > c.max {
		delete(c.items, c.order[0])
		c.order = c.order[1:]
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[hash]; !ok {
		return nil
	}
	delete(c.items, hash)
	for i, h := range c.order {
		if h == hash {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// RedisConfig configures RedisCache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisCache stores ChunkSets as JSON. Entries are schema-validated on read;
// invalid entries are deleted and reported as misses.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(cfg RedisConfig) *RedisCache {
	return NewRedisCacheFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.Prefix, cfg.TTL)
}

func NewRedisCacheFromClient(rdb *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "hilens:chunkset:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(hash string) string { return c.prefix + hash }

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, hash string) (*chunkset.ChunkSet, bool, error) {
	data, err := c.rdb.Get(ctx, c.key(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	cs, err := chunkset.Decode(data)
	if err != nil {
		_ = c.rdb.Del(ctx, c.key(hash)).Err()
		return nil, false, fmt.Errorf("cached chunkset %s: %w", hash, err)
	}
	return cs, true, nil
}

func (c *RedisCache) Set(ctx context.Context, hash string, cs *chunkset.ChunkSet) error {
	data, err := json.Marshal(cs)
	if err != nil {
		return fmt.Errorf("marshal chunkset: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(hash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, hash string) error {
	if err := c.rdb.Del(ctx, c.key(hash)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error { return c.rdb.Close() }
