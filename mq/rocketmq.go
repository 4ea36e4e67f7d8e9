package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
)

const (
	TopicVoteEvents = "vote_events"
	TagVoteCast     = "vote_cast"
)

// RocketQueue publishes vote-cast messages to RocketMQ, sharded by voting
// event so one event's messages stay on one queue
type RocketQueue struct {
	nameServers []string
	log         *slog.Logger
	producer    rocketmq.Producer
	processed   *processedSet

	mu       sync.Mutex
	consumer rocketmq.PushConsumer
	handler  Handler
}

// NewRocketQueue starts a producer against the name servers
func NewRocketQueue(nameServers []string, log *slog.Logger) (*RocketQueue, error) {
	p, err := rocketmq.NewProducer(
		producer.WithNameServer(nameServers),
		producer.WithGroupName("vote_cast_producer"),
		producer.WithRetry(2),
		producer.WithSendMsgTimeout(10*time.Second),
		producer.WithVIPChannel(false),
	)
	if err != nil {
		return nil, fmt.Errorf("create rocketmq producer: %w", err)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("start rocketmq producer: %w", err)
	}

	log.Info("rocketmq producer started", "namesrv", nameServers)
	return &RocketQueue{
		nameServers: nameServers,
		log:         log,
		producer:    p,
		processed:   newProcessedSet(24 * time.Hour),
	}, nil
}

func (q *RocketQueue) Driver() string { return "rocketmq" }

func encodeRocketMessage(msg VoteCastMessage) (*primitive.Message, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	m := primitive.NewMessage(TopicVoteEvents, body)
	m.WithTag(TagVoteCast)
	m.WithKeys([]string{msg.MessageID})
	m.WithShardingKey(msg.VotingEventID)
	return m, nil
}

func (q *RocketQueue) Publish(ctx context.Context, msg VoteCastMessage) error {
	m, err := encodeRocketMessage(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	res, err := q.producer.SendSync(ctx, m)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	q.log.Debug("message sent", "msg_id", res.MsgID, "message_id", msg.MessageID)
	return nil
}

func (q *RocketQueue) Start(handler Handler) error {
	if handler == nil {
		return ErrNoHandler
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.consumer != nil {
		return nil
	}
	q.handler = handler

	c, err := rocketmq.NewPushConsumer(
		consumer.WithNameServer(q.nameServers),
		consumer.WithGroupName("vote_cast_consumer"),
		consumer.WithConsumerModel(consumer.Clustering),
		consumer.WithConsumeFromWhere(consumer.ConsumeFromLastOffset),
	)
	if err != nil {
		return fmt.Errorf("create rocketmq consumer: %w", err)
	}

	err = c.Subscribe(TopicVoteEvents, consumer.MessageSelector{
		Type:       consumer.TAG,
		Expression: TagVoteCast,
	}, q.consume)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicVoteEvents, err)
	}
	if err := c.Start(); err != nil {
		return fmt.Errorf("start rocketmq consumer: %w", err)
	}

	q.consumer = c
	q.log.Info("rocketmq consumer started", "topic", TopicVoteEvents)
	return nil
}

func (q *RocketQueue) consume(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	for _, m := range msgs {
		var msg VoteCastMessage
		if err := json.Unmarshal(m.Body, &msg); err != nil {
			q.log.Error("undecodable message", "msg_id", m.MsgId, "error", err)
			continue
		}
		if q.processed.Seen(msg.MessageID) {
			continue
		}
		if err := q.handler(ctx, msg); err != nil {
			q.log.Error("message handling failed", "message_id", msg.MessageID, "error", err)
			return consumer.ConsumeRetryLater, nil
		}
		q.processed.Mark(msg.MessageID)
	}
	return consumer.ConsumeSuccess, nil
}

func (q *RocketQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.consumer != nil {
		if err := q.consumer.Shutdown(); err != nil {
			q.log.Error("rocketmq consumer shutdown failed", "error", err)
		}
		q.consumer = nil
	}
	if err := q.producer.Shutdown(); err != nil {
		q.log.Error("rocketmq producer shutdown failed", "error", err)
	}
	q.log.Info("rocketmq queue closed")
}

// Stats is not available from the client side
func (q *RocketQueue) Stats(ctx context.Context) map[string]int64 {
	return map[string]int64{}
}
