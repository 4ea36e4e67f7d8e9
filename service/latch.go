package service

import (
	"context"
	"sync"
)

// Latch is a non-blocking mutual exclusion on a key. It keeps one cast per
// (wallet, event, card) in flight at a time.
type Latch interface {
	TryAcquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// LocalLatch is an in-process Latch
type LocalLatch struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLatch() *LocalLatch {
	return &LocalLatch{held: make(map[string]struct{})}
}

func (l *LocalLatch) TryAcquire(ctx context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true, nil
}
