package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Locker runs fn while holding the named lock
type Locker interface {
	WithLock(ctx context.Context, name string, expiry time.Duration, fn func() error) error
}

// LockService is a redsync backed distributed mutex
type LockService struct {
	rs *redsync.Redsync
}

func NewLockService(client redis.UniversalClient) *LockService {
	return &LockService{rs: redsync.New(goredis.NewPool(client))}
}

// AcquireLock blocks for a few short retries until the lock is held
func (s *LockService) AcquireLock(ctx context.Context, name string, expiry time.Duration) (*redsync.Mutex, error) {
	mutex := s.rs.NewMutex(name,
		redsync.WithExpiry(expiry),
		redsync.WithTries(5),
		redsync.WithRetryDelay(50*time.Millisecond),
		redsync.WithDriftFactor(0.01),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if isLockHeld(err) {
			return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, name)
		}
		return nil, err
	}
	return mutex, nil
}

// TryAcquire makes a single attempt. ok is false when someone else holds the lock.
func (s *LockService) TryAcquire(ctx context.Context, name string, expiry time.Duration) (mutex *redsync.Mutex, ok bool, err error) {
	mutex = s.rs.NewMutex(name,
		redsync.WithExpiry(expiry),
		redsync.WithTries(1),
	)
	if err := mutex.TryLockContext(ctx); err != nil {
		if isLockHeld(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return mutex, true, nil
}

func (s *LockService) WithLock(ctx context.Context, name string, expiry time.Duration, fn func() error) error {
	mutex, err := s.AcquireLock(ctx, name, expiry)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = mutex.UnlockContext(context.WithoutCancel(ctx))
	}()
	return fn()
}

func isLockHeld(err error) bool {
	if errors.Is(err, redsync.ErrFailed) {
		return true
	}
	return strings.Contains(err.Error(), "lock already taken")
}
