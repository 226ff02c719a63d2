// Package cache stores rendered report payloads between snapshot builds.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"invplan-backend/internal/logger"
)

// Cache is a JSON value cache. Get reports a miss with ok=false.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (ok bool, err error)
	Set(ctx context.Context, key string, v any) error
	// Invalidate drops every key under the cache prefix.
	Invalidate(ctx context.Context) error
}

// New returns a Redis cache when rdb is set and a no-op cache otherwise.
func New(rdb *goredis.Client, prefix string, ttl time.Duration, baseLog *logger.Logger) Cache {
	if rdb == nil {
		return Noop{}
	}
	return &redisCache{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		log:    baseLog.With("component", "ReportCache"),
	}
}

type redisCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

func (c *redisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("dropping undecodable cache entry", "key", key, "error", err)
		_ = c.rdb.Del(ctx, c.prefix+key).Err()
		return false, nil
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	c.log.Debug("cache invalidated", "keys", len(keys))
	return nil
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any) error         { return nil }
func (Noop) Invalidate(context.Context) error               { return nil }

// Key joins parts into a cache key, e.g. Key("planning", "brand=x").
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
