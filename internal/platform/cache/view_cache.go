package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "hoursly:view:"
	generationKey = keyPrefix + "gen"
)

// ViewCache stores rendered views under the current generation. Bumping
// the generation makes every earlier entry unreachable, so a single INCR
// invalidates the whole cache after a write.
type ViewCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewViewCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *ViewCache {
	return &ViewCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Fetch returns the cached bytes for key, or calls load and caches its
// result. Redis failures are logged and fall through to load.
func (c *ViewCache) Fetch(ctx context.Context, key string, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("view cache generation read failed", zap.Error(err))
		return load(ctx)
	}

	fullKey := entryKey(gen, key)
	data, err := c.rdb.Get(ctx, fullKey).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("view cache read failed", zap.String("key", fullKey), zap.Error(err))
	}

	data, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Set(ctx, fullKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("view cache write failed", zap.String("key", fullKey), zap.Error(err))
	}
	return data, nil
}

// Invalidate bumps the generation counter.
func (c *ViewCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Warn("view cache invalidation failed", zap.Error(err))
	}
}

func entryKey(gen int64, key string) string {
	return keyPrefix + strconv.FormatInt(gen, 10) + ":" + key
}

// Nop is the cache used when Redis is not configured.
type Nop struct{}

func (Nop) Fetch(ctx context.Context, _ string, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	return load(ctx)
}

func (Nop) Invalidate(context.Context) {}
