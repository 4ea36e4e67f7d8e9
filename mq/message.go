package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cryptid-vote-backend/models"

	"github.com/google/uuid"
)

var (
	ErrNoHandler = errors.New("mq: handler not registered")
	ErrClosed    = errors.New("mq: queue closed")
)

// VoteCastMessage announces a successfully inserted vote
type VoteCastMessage struct {
	MessageID     string `json:"message_id"`
	VoteID        string `json:"vote_id"`
	Wallet        string `json:"wallet"`
	CardID        string `json:"card_id"`
	VotingEventID string `json:"voting_event_id"`
	Timestamp     int64  `json:"timestamp"`
}

// NewVoteCastMessage builds the notification for vote
func NewVoteCastMessage(vote models.Vote) VoteCastMessage {
	return VoteCastMessage{
		MessageID:     uuid.NewString(),
		VoteID:        vote.ID,
		Wallet:        vote.Wallet,
		CardID:        vote.CardID,
		VotingEventID: vote.VotingEventID,
		Timestamp:     time.Now().Unix(),
	}
}

// Handler consumes one message. A returned error schedules a retry where the driver supports it.
type Handler func(ctx context.Context, msg VoteCastMessage) error

// Queue carries vote-cast notifications from the write path to consumers
type Queue interface {
	Publish(ctx context.Context, msg VoteCastMessage) error
	// Start registers the handler and begins consuming
	Start(handler Handler) error
	Close()
	// Driver names the backing implementation
	Driver() string
	Stats(ctx context.Context) map[string]int64
}

// processedSet remembers handled message ids for a while so redelivered
// messages are handled once
type processedSet struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

func newProcessedSet(ttl time.Duration) *processedSet {
	return &processedSet{ttl: ttl, seen: make(map[string]time.Time)}
}

func (p *processedSet) Seen(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	at, ok := p.seen[id]
	return ok && time.Since(at) < p.ttl
}

func (p *processedSet) Mark(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.seen[id] = now
	// prune on write, no background goroutine
	if len(p.seen) > 1024 {
		for k, at := range p.seen {
			if now.Sub(at) >= p.ttl {
				delete(p.seen, k)
			}
		}
	}
}

func (m VoteCastMessage) String() string {
	return fmt.Sprintf("vote %s card=%s event=%s", m.MessageID, m.CardID, m.VotingEventID)
}
