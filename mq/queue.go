package mq

import (
	"log/slog"
	"strings"

	"cryptid-vote-backend/config"

	"github.com/redis/go-redis/v9"
)

const memoryBuffer = 1024

// New picks the driver named by MQ_DRIVER. A broker that cannot be reached
// degrades to the in-process queue instead of failing startup.
func New(cfg *config.Config, client *redis.Client, log *slog.Logger) Queue {
	switch cfg.MQDriver {
	case "rocketmq":
		q, err := NewRocketQueue(strings.Split(cfg.RocketMQNameSrvAddr, ","), log)
		if err == nil {
			return q
		}
		log.Warn("rocketmq unavailable, using memory queue", "error", err)
	case "redis":
		if client != nil {
			return NewRedisQueue(client, log)
		}
		log.Warn("redis unavailable, using memory queue")
	}
	return NewMemoryQueue(memoryBuffer, log)
}
