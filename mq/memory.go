package mq

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryQueue delivers messages in process through a buffered channel.
// Used when no broker is configured or reachable.
type MemoryQueue struct {
	log       *slog.Logger
	messages  chan VoteCastMessage
	processed *processedSet

	mu      sync.Mutex
	handler Handler
	started bool
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewMemoryQueue(buffer int, log *slog.Logger) *MemoryQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &MemoryQueue{
		log:       log,
		messages:  make(chan VoteCastMessage, buffer),
		processed: newProcessedSet(24 * time.Hour),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (q *MemoryQueue) Driver() string { return "memory" }

func (q *MemoryQueue) Publish(ctx context.Context, msg VoteCastMessage) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}

	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return ErrClosed
	}
}

func (q *MemoryQueue) Start(handler Handler) error {
	if handler == nil {
		return ErrNoHandler
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if q.started {
		return nil
	}
	q.handler = handler
	q.started = true

	q.wg.Add(1)
	go q.consumeLoop()
	q.log.Info("memory queue consumer started")
	return nil
}

func (q *MemoryQueue) consumeLoop() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.messages:
			q.process(msg)
		}
	}
}

func (q *MemoryQueue) process(msg VoteCastMessage) {
	if q.processed.Seen(msg.MessageID) {
		q.log.Debug("duplicate message skipped", "message_id", msg.MessageID)
		return
	}
	if err := q.handler(q.ctx, msg); err != nil {
		q.log.Error("message handling failed", "message_id", msg.MessageID, "error", err)
		return
	}
	q.processed.Mark(msg.MessageID)
}

// Close stops the consumer. Messages still buffered are dropped.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	q.log.Info("memory queue closed")
}

func (q *MemoryQueue) Stats(ctx context.Context) map[string]int64 {
	return map[string]int64{"main_queue": int64(len(q.messages))}
}
