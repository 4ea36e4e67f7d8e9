package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/mq"
	"cryptid-vote-backend/repository"
)

// EventStore is the server side view of the backend: the gateway plus event lookup
type EventStore interface {
	repository.Gateway
	FindVotingEvent(ctx context.Context, id string) (*models.VotingEvent, error)
}

// Publisher sends vote-cast notifications
type Publisher interface {
	Publish(ctx context.Context, msg mq.VoteCastMessage) error
}

// VoteRecorder is the write path behind POST /api/votes. It checks the event
// window, applies the per-wallet limit, inserts and announces the vote.
type VoteRecorder struct {
	store     EventStore
	publisher Publisher
	limiter   RateLimiter
	log       *slog.Logger
	now       func() time.Time
}

func NewVoteRecorder(store EventStore, publisher Publisher, limiter RateLimiter, log *slog.Logger) *VoteRecorder {
	if limiter == nil {
		limiter = noLimit{}
	}
	return &VoteRecorder{store: store, publisher: publisher, limiter: limiter, log: log, now: time.Now}
}

// Record returns repository.ErrUniqueViolation unchanged so the handler can
// answer with the backend's conflict code
func (r *VoteRecorder) Record(ctx context.Context, in models.VoteInput) (*models.Vote, error) {
	event, err := r.store.FindVotingEvent(ctx, in.VotingEventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if !event.IsActive(r.now()) {
		return nil, ErrEventClosed
	}

	allowed, err := r.limiter.Allow(ctx, in.Wallet)
	if err != nil {
		// the unique constraint is what matters; do not reject on limiter failure
		r.log.Warn("wallet rate limiter failed", "wallet", in.Wallet, "error", err)
	} else if !allowed {
		return nil, ErrRateLimited
	}

	vote, err := r.store.InsertVote(ctx, in.Wallet, in.CardID, in.VotingEventID)
	if err != nil {
		return nil, err
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, mq.NewVoteCastMessage(*vote)); err != nil {
			r.log.Warn("vote cast notification failed", "vote", vote.ID, "error", err)
		}
	}
	return vote, nil
}
