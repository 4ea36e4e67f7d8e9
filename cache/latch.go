package cache

import (
	"context"
	"fmt"
	"time"
)

// RedisLatch is a non-blocking, cross-process latch on a key. Two cli sessions
// voting with the same wallet contend on the same latch.
type RedisLatch struct {
	locks  *LockService
	expiry time.Duration
}

func NewRedisLatch(locks *LockService, expiry time.Duration) *RedisLatch {
	return &RedisLatch{locks: locks, expiry: expiry}
}

// TryAcquire returns ok=false without blocking when the latch is held elsewhere
func (l *RedisLatch) TryAcquire(ctx context.Context, key string) (release func(), ok bool, err error) {
	mutex, ok, err := l.locks.TryAcquire(ctx, fmt.Sprintf("vote_latch:%s", key), l.expiry)
	if err != nil || !ok {
		return nil, ok, err
	}
	return func() {
		_, _ = mutex.UnlockContext(context.WithoutCancel(ctx))
	}, true, nil
}
