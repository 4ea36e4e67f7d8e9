package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindowLimiter allows at most limit events per key inside a rolling window.
// State lives in a redis sorted set, so every server instance shares it.
type SlidingWindowLimiter struct {
	client RedisClient
	prefix string
	window time.Duration
	limit  int
	now    func() time.Time
}

func NewSlidingWindowLimiter(client RedisClient, prefix string, window time.Duration, limit int) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		prefix: prefix,
		window: window,
		limit:  limit,
		now:    time.Now,
	}
}

// Allow records one event for key and reports whether it fits in the window
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.client == nil {
		return false, ErrRedisNotAvailable
	}

	setKey := fmt.Sprintf("sliding_window:%s:%s", l.prefix, key)
	now := l.now().UnixMilli()
	windowStart := now - l.window.Milliseconds()
	member := uuid.NewString()

	pipe := l.client.Pipeline()
	pipe.ZAdd(ctx, setKey, redis.Z{Score: float64(now), Member: member})
	pipe.ZRemRangeByScore(ctx, setKey, "0", strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, setKey)
	pipe.Expire(ctx, setKey, 2*l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if card.Val() > int64(l.limit) {
		// rejected events do not count against the window
		l.client.ZRem(ctx, setKey, member)
		return false, nil
	}
	return true, nil
}
