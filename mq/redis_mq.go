package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// redis keys of the list based queue
const (
	MainQueueName       = "vote_cast_queue"
	ProcessingQueueName = "vote_cast_processing"
	DeadLetterQueueName = "vote_cast_dead_letter"
	RetriesHashName     = "vote_cast_retries"
	PublishedSetName    = "vote_cast_message_ids"
)

// RedisQueue is a reliable list queue: BRPOPLPUSH moves each message to a
// processing list, failures are retried up to maxRetries and then parked in
// a dead letter list
type RedisQueue struct {
	client *redis.Client
	log    *slog.Logger

	processingTimeout time.Duration
	retryDelay        time.Duration
	maxRetries        int
	checkInterval     time.Duration

	mu      sync.Mutex
	handler Handler
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRedisQueue(client *redis.Client, log *slog.Logger) *RedisQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisQueue{
		client:            client,
		log:               log,
		processingTimeout: 5 * time.Minute,
		retryDelay:        30 * time.Second,
		maxRetries:        3,
		checkInterval:     time.Minute,
		ctx:               ctx,
		cancel:            cancel,
	}
}

func (r *RedisQueue) Driver() string { return "redis" }

func (r *RedisQueue) Publish(ctx context.Context, msg VoteCastMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	// SADD returns 0 when the id was already published
	added, err := r.client.SAdd(ctx, PublishedSetName, msg.MessageID).Result()
	if err != nil {
		r.log.Warn("idempotency check failed", "message_id", msg.MessageID, "error", err)
	} else if added == 0 {
		r.log.Debug("message already published", "message_id", msg.MessageID)
		return nil
	}
	r.client.Expire(ctx, PublishedSetName, 48*time.Hour)

	if err := r.client.LPush(ctx, MainQueueName, data).Err(); err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}

func (r *RedisQueue) Start(handler Handler) error {
	if handler == nil {
		return ErrNoHandler
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	if r.ctx.Err() != nil {
		return ErrClosed
	}
	r.handler = handler
	r.running = true

	r.wg.Add(2)
	go r.consumeLoop()
	go r.timeoutCheckLoop()
	r.log.Info("redis queue consumer started", "queue", MainQueueName)
	return nil
}

func (r *RedisQueue) Close() {
	r.cancel()
	r.wg.Wait()
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.log.Info("redis queue closed")
}

func (r *RedisQueue) consumeLoop() {
	defer r.wg.Done()
	for {
		if r.ctx.Err() != nil {
			return
		}
		data, err := r.client.BRPopLPush(r.ctx, MainQueueName, ProcessingQueueName, time.Second).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && r.ctx.Err() == nil {
				r.log.Error("queue read failed", "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		r.process(data)
	}
}

func (r *RedisQueue) process(data string) {
	// cleanup must survive Close
	ctx := context.WithoutCancel(r.ctx)

	var msg VoteCastMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		r.log.Error("undecodable message", "error", err)
		r.moveToDeadLetter(ctx, data)
		return
	}

	if err := r.handler(r.ctx, msg); err != nil {
		r.log.Error("message handling failed", "message_id", msg.MessageID, "error", err)
		r.retryOrBury(ctx, msg, data)
		return
	}

	r.client.LRem(ctx, ProcessingQueueName, 1, data)
	r.client.HDel(ctx, RetriesHashName, msg.MessageID)
}

func (r *RedisQueue) retryOrBury(ctx context.Context, msg VoteCastMessage, data string) {
	retries, _ := r.client.HGet(ctx, RetriesHashName, msg.MessageID).Int()
	if retries >= r.maxRetries {
		r.log.Warn("message exceeded retries, moved to dead letter", "message_id", msg.MessageID)
		r.moveToDeadLetter(ctx, data)
		return
	}

	r.client.HIncrBy(ctx, RetriesHashName, msg.MessageID, 1)
	r.client.LRem(ctx, ProcessingQueueName, 1, data)

	msg.Timestamp = time.Now().Unix()
	updated, _ := json.Marshal(msg)
	time.AfterFunc(r.retryDelay, func() {
		r.client.LPush(ctx, MainQueueName, updated)
	})
}

func (r *RedisQueue) timeoutCheckLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.checkTimeouts()
		}
	}
}

// checkTimeouts requeues messages stuck in the processing list, e.g. after a crash
func (r *RedisQueue) checkTimeouts() {
	ctx := r.ctx
	items, err := r.client.LRange(ctx, ProcessingQueueName, 0, -1).Result()
	if err != nil {
		r.log.Error("read processing list failed", "error", err)
		return
	}

	now := time.Now().Unix()
	for _, data := range items {
		var msg VoteCastMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			r.moveToDeadLetter(ctx, data)
			continue
		}
		if now-msg.Timestamp > int64(r.processingTimeout.Seconds()) {
			r.retryOrBury(ctx, msg, data)
		}
	}
}

func (r *RedisQueue) moveToDeadLetter(ctx context.Context, data string) {
	r.client.LPush(ctx, DeadLetterQueueName, data)
	r.client.LRem(ctx, ProcessingQueueName, 1, data)
}

// RetryDeadLetters moves every dead letter back to the main queue
func (r *RedisQueue) RetryDeadLetters(ctx context.Context) (int, error) {
	items, err := r.client.LRange(ctx, DeadLetterQueueName, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("read dead letters: %w", err)
	}

	count := 0
	for _, data := range items {
		if err := r.client.LPush(ctx, MainQueueName, data).Err(); err != nil {
			r.log.Error("requeue dead letter failed", "error", err)
			continue
		}
		r.client.LRem(ctx, DeadLetterQueueName, 1, data)
		var msg VoteCastMessage
		if json.Unmarshal([]byte(data), &msg) == nil {
			r.client.HDel(ctx, RetriesHashName, msg.MessageID)
		}
		count++
	}
	return count, nil
}

func (r *RedisQueue) Stats(ctx context.Context) map[string]int64 {
	mainLen, _ := r.client.LLen(ctx, MainQueueName).Result()
	procLen, _ := r.client.LLen(ctx, ProcessingQueueName).Result()
	deadLen, _ := r.client.LLen(ctx, DeadLetterQueueName).Result()
	return map[string]int64{
		"main_queue":        mainLen,
		"processing_queue":  procLen,
		"dead_letter_queue": deadLen,
	}
}

// ClearAllQueues empties every queue key, for tests
func (r *RedisQueue) ClearAllQueues(ctx context.Context) error {
	return r.client.Del(ctx, MainQueueName, ProcessingQueueName, DeadLetterQueueName, RetriesHashName, PublishedSetName).Err()
}
