package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyValueStore is the part of redis HotCache needs
type KeyValueStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// HotCache caches JSON values in redis and guards reloads with a lock so a
// cold key is loaded once rather than by every concurrent caller
type HotCache struct {
	client KeyValueStore
	locker Locker
	log    *slog.Logger
}

func NewHotCache(client KeyValueStore, locker Locker, log *slog.Logger) *HotCache {
	return &HotCache{client: client, locker: locker, log: log}
}

func (c *HotCache) get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.log.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return ErrCacheMiss
	}
	return nil
}

func (c *HotCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, jitter(ttl)).Err()
}

// Invalidate drops a cached key
func (c *HotCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// GetOrLoad returns the cached value for key, calling load under the lock on a miss.
// Redis failures fall back to load.
func GetOrLoad[T any](ctx context.Context, c *HotCache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var result T
	err := c.get(ctx, key, &result)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.log.Warn("cache read failed", "key", key, "error", err)
		return load(ctx)
	}

	var loadErr error
	lockName := fmt.Sprintf("cache_lock:%s", key)
	lockErr := c.locker.WithLock(ctx, lockName, 5*time.Second, func() error {
		// someone may have filled it while we waited
		if err := c.get(ctx, key, &result); err == nil {
			return nil
		}
		loaded, err := load(ctx)
		if err != nil {
			loadErr = err
			return err
		}
		result = loaded
		if err := c.set(ctx, key, loaded, ttl); err != nil {
			c.log.Warn("cache write failed", "key", key, "error", err)
		}
		return nil
	})
	if lockErr == nil {
		return result, nil
	}

	if loadErr != nil {
		var zero T
		return zero, loadErr
	}
	c.log.Warn("cache lock unavailable, loading directly", "key", key, "error", lockErr)
	return load(ctx)
}

// jitter spreads expirations by up to 10% so keys do not expire together
func jitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	spread := int64(ttl / 10)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int64N(spread))
}
