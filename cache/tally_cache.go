package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cryptid-vote-backend/models"
)

// marker field, present in every cached tally so an event without votes
// is distinguishable from a missing key
const tallyMarker = "__cached"

// TallyCache keeps one redis hash per voting event: card id -> count
type TallyCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewTallyCache(client RedisClient, ttl time.Duration) *TallyCache {
	return &TallyCache{client: client, ttl: ttl}
}

func tallyKey(eventID string) string {
	return fmt.Sprintf("tally:%s", eventID)
}

// Get returns ErrCacheMiss when the event has no cached tally
func (c *TallyCache) Get(ctx context.Context, eventID string) (models.Tally, error) {
	fields, err := c.client.HGetAll(ctx, tallyKey(eventID)).Result()
	if err != nil {
		return nil, err
	}
	if _, ok := fields[tallyMarker]; !ok {
		return nil, ErrCacheMiss
	}

	tally := make(models.Tally, len(fields)-1)
	for card, raw := range fields {
		if card == tallyMarker {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt tally entry %s=%q: %w", card, raw, err)
		}
		tally[card] = n
	}
	return tally, nil
}

func (c *TallyCache) Set(ctx context.Context, eventID string, tally models.Tally) error {
	key := tallyKey(eventID)
	values := make([]interface{}, 0, 2*len(tally)+2)
	values = append(values, tallyMarker, "1")
	for card, n := range tally {
		values = append(values, card, n)
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, values...)
	pipe.Expire(ctx, key, jitter(c.ttl))
	_, err := pipe.Exec(ctx)
	return err
}

func (c *TallyCache) Invalidate(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, tallyKey(eventID)).Err()
}
