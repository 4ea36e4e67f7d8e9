package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	data    map[string]string
	failGet error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return redis.NewStringResult("", m.failGet)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) WithLock(ctx context.Context, name string, expiry time.Duration, fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn()
}

type failingLocker struct{}

func (failingLocker) WithLock(ctx context.Context, name string, expiry time.Duration, fn func() error) error {
	return ErrLockNotAcquired
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetOrLoadLoadsOnceUnderContention(t *testing.T) {
	store := newMemoryStore()
	hc := NewHotCache(store, &mutexLocker{}, discardLogger())

	var calls atomic.Int32
	load := func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return []string{"bigfoot", "mothman"}, nil
	}

	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrLoad(context.Background(), hc, "catalog", time.Minute, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"bigfoot", "mothman"}, r)
	}
}

func TestGetOrLoadFallsBackWhenRedisFails(t *testing.T) {
	store := newMemoryStore()
	store.failGet = errors.New("connection refused")
	hc := NewHotCache(store, &mutexLocker{}, discardLogger())

	v, err := GetOrLoad(context.Background(), hc, "catalog", time.Minute, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestGetOrLoadFallsBackWhenLockUnavailable(t *testing.T) {
	hc := NewHotCache(newMemoryStore(), failingLocker{}, discardLogger())

	v, err := GetOrLoad(context.Background(), hc, "catalog", time.Minute, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetOrLoadPropagatesLoadError(t *testing.T) {
	store := newMemoryStore()
	hc := NewHotCache(store, &mutexLocker{}, discardLogger())
	boom := errors.New("db down")

	_, err := GetOrLoad(context.Background(), hc, "catalog", time.Minute, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.data, "failed loads are not cached")
}

func TestInvalidateForcesReload(t *testing.T) {
	store := newMemoryStore()
	hc := NewHotCache(store, &mutexLocker{}, discardLogger())
	ctx := context.Background()

	n := 0
	load := func(ctx context.Context) (int, error) {
		n++
		return n, nil
	}

	v, _ := GetOrLoad(ctx, hc, "k", time.Minute, load)
	assert.Equal(t, 1, v)
	v, _ = GetOrLoad(ctx, hc, "k", time.Minute, load)
	assert.Equal(t, 1, v)

	require.NoError(t, hc.Invalidate(ctx, "k"))
	v, _ = GetOrLoad(ctx, hc, "k", time.Minute, load)
	assert.Equal(t, 2, v)
}

func TestJitter(t *testing.T) {
	ttl := 10 * time.Second
	for range 50 {
		got := jitter(ttl)
		assert.GreaterOrEqual(t, got, ttl)
		assert.Less(t, got, ttl+ttl/10)
	}
	assert.Equal(t, time.Duration(0), jitter(0))
}
