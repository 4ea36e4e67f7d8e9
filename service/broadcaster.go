package service

import (
	"context"
	"fmt"
	"log/slog"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/mq"
)

// TallyCounter recomputes an event tally
type TallyCounter interface {
	CountVotesForEvent(ctx context.Context, eventID string) (models.Tally, error)
}

// TallyInvalidator drops a cached tally
type TallyInvalidator interface {
	InvalidateTally(ctx context.Context, eventID string)
}

// TallyPusher delivers a tally to live subscribers
type TallyPusher interface {
	BroadcastTally(eventID string, tally models.Tally) int
}

// TallyBroadcaster consumes vote-cast messages and pushes fresh tallies
type TallyBroadcaster struct {
	counter     TallyCounter
	invalidator TallyInvalidator
	pusher      TallyPusher
	log         *slog.Logger
}

// NewTallyBroadcaster builds the consumer. invalidator may be nil when no cache is in use.
func NewTallyBroadcaster(counter TallyCounter, invalidator TallyInvalidator, pusher TallyPusher, log *slog.Logger) *TallyBroadcaster {
	return &TallyBroadcaster{counter: counter, invalidator: invalidator, pusher: pusher, log: log}
}

// Handle implements mq.Handler
func (b *TallyBroadcaster) Handle(ctx context.Context, msg mq.VoteCastMessage) error {
	if b.invalidator != nil {
		b.invalidator.InvalidateTally(ctx, msg.VotingEventID)
	}
	tally, err := b.counter.CountVotesForEvent(ctx, msg.VotingEventID)
	if err != nil {
		return fmt.Errorf("recount event %s: %w", msg.VotingEventID, err)
	}
	n := b.pusher.BroadcastTally(msg.VotingEventID, tally)
	b.log.Debug("tally pushed", "event", msg.VotingEventID, "subscribers", n)
	return nil
}
