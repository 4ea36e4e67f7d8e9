package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cryptid-vote-backend/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of go-redis commands the caches use
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd

	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd

	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Pipeline() redis.Pipeliner
}

// Connect dials redis and pings it. An empty REDIS_ADDR disables redis.
func Connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, ErrRedisNotAvailable
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrRedisNotAvailable, cfg.RedisAddr, err)
	}

	log.Info("redis connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return client, nil
}
