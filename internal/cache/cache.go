// Package cache holds the shared Redis client and a small JSON cache used by
// the content services. A nil *Cache is valid and caches nothing.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
)

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Cache stores JSON values under string keys.
type Cache struct {
	client redis.Cmdable
	logger *slog.Logger
}

// New wraps client. A nil client returns a nil cache.
func New(client redis.Cmdable, logger *slog.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, logger: logger}
}

// Get decodes the value at key into dst and reports whether it was a hit.
// Redis and decoding errors count as a miss.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if c == nil {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Cache read failed", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Cache entry is corrupt", "key", key, "error", err)
		return false
	}

	c.logger.Debug("Cache hit", "key", key)
	return true
}

// Set stores v at key for ttl.
func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("Cache write failed", "key", key, "error", err)
	}
}

// Delete removes keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Cache delete failed", "keys", keys, "error", err)
	}
}

// Version returns the generation counter stored at key, zero when unset. It
// reports false when Redis cannot be read; the caller should then skip the
// cache for this request.
func (c *Cache) Version(ctx context.Context, key string) (int64, bool) {
	if c == nil {
		return 0, false
	}

	v, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.logger.Warn("Cache version read failed", "key", key, "error", err)
		return 0, false
	}
	return v, true
}

// Bump advances the generation counter at key. Entries stored under an
// older generation are never read again and age out on their own TTL.
func (c *Cache) Bump(ctx context.Context, key string) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		c.logger.Warn("Cache version bump failed", "key", key, "error", err)
	}
}

// DeleteByPattern removes every key matching a glob pattern.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) {
	if c == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Cache scan failed", "pattern", pattern, "error", err)
	}
}
