package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cryptid-vote-backend/repository"
	"cryptid-vote-backend/wallet"
)

// attestation timestamps are ISO-8601 in UTC with millisecond precision
const isoMillis = "2006-01-02T15:04:05.000Z"

// VoteMessage is the human readable text a wallet signs to attest a vote
func VoteMessage(cardID, eventID string, at time.Time) string {
	return fmt.Sprintf("Vote for cryptid %s in event %s at %s", cardID, eventID, at.UTC().Format(isoMillis))
}

// VoteService casts votes on behalf of a connected wallet
type VoteService struct {
	gateway repository.Gateway
	latch   Latch
	log     *slog.Logger
	now     func() time.Time
}

type VoteOption func(*VoteService)

// WithClock overrides the time source used in attestation messages
func WithClock(now func() time.Time) VoteOption {
	return func(s *VoteService) { s.now = now }
}

// WithLatch replaces the in-process latch, e.g. with a redis one
func WithLatch(l Latch) VoteOption {
	return func(s *VoteService) { s.latch = l }
}

func NewVoteService(gateway repository.Gateway, log *slog.Logger, opts ...VoteOption) *VoteService {
	s := &VoteService{
		gateway: gateway,
		latch:   NewLocalLatch(),
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CastVote runs guard, sign and commit in order. Only the backend unique
// constraint makes the outcome race free; the guard read just avoids a
// pointless signature prompt.
func (s *VoteService) CastVote(ctx context.Context, w wallet.Adapter, cardID, eventID string) error {
	if w == nil {
		return ErrWalletNotConnected
	}
	address, ok := w.Address()
	if !ok || address == "" {
		return ErrWalletNotConnected
	}
	log := s.log.With("wallet", address, "card", cardID, "event", eventID)

	release, ok, err := s.latch.TryAcquire(ctx, address+":"+eventID+":"+cardID)
	switch {
	case err != nil:
		// unique constraint still holds without the latch
		log.Warn("vote latch unavailable", "error", err)
	case !ok:
		return ErrVoteInProgress
	default:
		defer release()
	}

	// step 1: guard
	existing, err := s.gateway.ListUserVotesForEvent(ctx, address, eventID)
	if err != nil {
		log.Error("vote guard read failed", "error", err)
		return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	for _, v := range existing {
		if v.CardID == cardID {
			return ErrAlreadyVoted
		}
	}

	// step 2: attestation
	message := VoteMessage(cardID, eventID, s.now())
	signature, err := w.SignMessage(ctx, []byte(message))
	if err != nil {
		if wallet.IsUserRejection(err) {
			log.Info("vote signature rejected")
			return fmt.Errorf("%w: %w", ErrVoteCancelled, err)
		}
		log.Error("vote signing failed", "error", err)
		return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	if len(signature) == 0 {
		log.Error("wallet returned an empty signature")
		return fmt.Errorf("%w: empty signature", ErrSubmissionFailed)
	}

	// step 3: commit
	vote, err := s.gateway.InsertVote(ctx, address, cardID, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			log.Info("vote lost race to a concurrent insert")
			return ErrAlreadyVoted
		}
		log.Error("vote insert failed", "error", err)
		return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	log.Info("vote cast", "vote", vote.ID)
	return nil
}
