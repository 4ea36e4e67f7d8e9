package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/repository"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memGateway is an in-memory backend with the one-vote-per-tuple constraint
type memGateway struct {
	mu          sync.Mutex
	votes       []models.Vote
	events      map[string]models.VotingEvent
	submissions []models.CryptidSubmission

	listErr   error
	insertErr error
	// hideVotes makes the guard read miss existing votes, simulating a stale read
	hideVotes bool

	listCalls   atomic.Int32
	insertCalls atomic.Int32
}

func newMemGateway() *memGateway {
	return &memGateway{events: make(map[string]models.VotingEvent)}
}

func (g *memGateway) ListCryptids(ctx context.Context) ([]models.Cryptid, error) {
	return nil, nil
}

func (g *memGateway) ListActiveVotingEvents(ctx context.Context, now time.Time) ([]models.VotingEvent, error) {
	return nil, nil
}

func (g *memGateway) FindVotingEvent(ctx context.Context, id string) (*models.VotingEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (g *memGateway) ListUserVotesForEvent(ctx context.Context, wallet, eventID string) ([]models.Vote, error) {
	g.listCalls.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	if g.hideVotes {
		return nil, nil
	}
	var out []models.Vote
	for _, v := range g.votes {
		if v.Wallet == wallet && v.VotingEventID == eventID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (g *memGateway) ListVotesForEvent(ctx context.Context, eventID string) ([]models.Vote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.Vote
	for _, v := range g.votes {
		if v.VotingEventID == eventID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (g *memGateway) InsertVote(ctx context.Context, wallet, cardID, eventID string) (*models.Vote, error) {
	g.insertCalls.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.insertErr != nil {
		return nil, g.insertErr
	}
	for _, v := range g.votes {
		if v.Wallet == wallet && v.VotingEventID == eventID && v.CardID == cardID {
			return nil, repository.ErrUniqueViolation
		}
	}
	v := models.Vote{ID: uuid.NewString(), Wallet: wallet, CardID: cardID, VotingEventID: eventID, CreatedAt: time.Now()}
	g.votes = append(g.votes, v)
	return &v, nil
}

func (g *memGateway) CountVotesForEvent(ctx context.Context, eventID string) (models.Tally, error) {
	votes, _ := g.ListVotesForEvent(ctx, eventID)
	return models.TallyFromVotes(votes), nil
}

func (g *memGateway) InsertSubmission(ctx context.Context, in models.SubmissionInput) (*models.CryptidSubmission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.insertErr != nil {
		return nil, g.insertErr
	}
	sub := models.CryptidSubmission{
		ID: uuid.NewString(), Wallet: in.Wallet, Signature: in.Signature, CryptidName: in.CryptidName,
		Platform: in.Platform, PlatformURL: in.PlatformURL, Lore: in.Lore, ImageURL: in.ImageURL,
		Status: models.SubmissionPending,
	}
	g.submissions = append(g.submissions, sub)
	return &sub, nil
}

func (g *memGateway) rows(wallet, eventID, cardID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, v := range g.votes {
		if v.Wallet == wallet && v.VotingEventID == eventID && v.CardID == cardID {
			n++
		}
	}
	return n
}

// fakeWallet signs with a canned response and records prompts
type fakeWallet struct {
	address string
	sign    func(ctx context.Context, msg []byte) ([]byte, error)

	mu       sync.Mutex
	messages []string
	calls    atomic.Int32
}

func signingWallet(address string) *fakeWallet {
	return &fakeWallet{
		address: address,
		sign: func(ctx context.Context, msg []byte) ([]byte, error) {
			return []byte("sig"), nil
		},
	}
}

func (w *fakeWallet) Address() (string, bool) {
	return w.address, w.address != ""
}

func (w *fakeWallet) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	w.calls.Add(1)
	w.mu.Lock()
	w.messages = append(w.messages, string(msg))
	w.mu.Unlock()
	return w.sign(ctx, msg)
}

type brokenLatch struct{}

func (brokenLatch) TryAcquire(ctx context.Context, key string) (func(), bool, error) {
	return nil, false, errors.New("redis down")
}
