// Package state holds the session caches a vote client renders from and
// the refresh logic that keeps them in step with the backend.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/repository"
	"cryptid-vote-backend/wallet"

	"golang.org/x/sync/errgroup"
)

var (
	ErrCatalogLoadFailed    = errors.New("catalog load failed")
	ErrVotingDataLoadFailed = errors.New("voting data load failed")
	ErrUserVotesLoadFailed  = errors.New("user votes load failed")
)

// Snapshot is a copy of the controller caches
type Snapshot struct {
	Cryptids    []models.Cryptid
	ActiveEvent *models.VotingEvent
	Tally       models.Tally
	UserVotes   map[string]struct{}
	Wallet      string
}

// Controller owns the read-through caches. Every load replaces its cache
// wholesale; nothing is maintained incrementally.
type Controller struct {
	gateway repository.Gateway
	log     *slog.Logger
	now     func() time.Time

	mu          sync.RWMutex
	cryptids    []models.Cryptid
	activeEvent *models.VotingEvent
	tally       models.Tally
	userVotes   map[string]struct{}
	wallet      wallet.Adapter
}

type Option func(*Controller)

// WithClock sets the instant used to pick the active event
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func NewController(gateway repository.Gateway, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		gateway:   gateway,
		log:       log,
		now:       time.Now,
		tally:     models.Tally{},
		userVotes: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start loads the catalog and the voting data concurrently, then the
// wallet's votes. Load failures degrade to empty caches and are joined
// into the returned error; the other loads still run.
func (c *Controller) Start(ctx context.Context) error {
	var catalogErr, votingErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		catalogErr = c.LoadCatalog(gctx)
		return nil
	})
	g.Go(func() error {
		votingErr = c.loadVoting(gctx)
		return nil
	})
	_ = g.Wait()

	return errors.Join(catalogErr, votingErr, c.LoadUserVotes(ctx))
}

func (c *Controller) LoadCatalog(ctx context.Context) error {
	cryptids, err := c.gateway.ListCryptids(ctx)
	if err != nil {
		c.log.Error("error fetching cryptids", "error", err)
		c.mu.Lock()
		c.cryptids = nil
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrCatalogLoadFailed, err)
	}
	c.mu.Lock()
	c.cryptids = cryptids
	c.mu.Unlock()
	return nil
}

// LoadActiveVoting picks the newest active event and caches its tally.
// When the event changes and a wallet is connected the wallet's votes are
// reloaded for the new event.
func (c *Controller) LoadActiveVoting(ctx context.Context) error {
	c.mu.RLock()
	before := eventID(c.activeEvent)
	c.mu.RUnlock()

	if err := c.loadVoting(ctx); err != nil {
		return err
	}

	c.mu.RLock()
	changed := eventID(c.activeEvent) != before
	c.mu.RUnlock()
	if changed {
		return c.LoadUserVotes(ctx)
	}
	return nil
}

func (c *Controller) loadVoting(ctx context.Context) error {
	events, err := c.gateway.ListActiveVotingEvents(ctx, c.now())
	if err != nil {
		c.log.Error("error fetching voting events", "error", err)
		c.setVoting(nil, models.Tally{})
		return fmt.Errorf("%w: %w", ErrVotingDataLoadFailed, err)
	}
	if len(events) == 0 {
		c.setVoting(nil, models.Tally{})
		return nil
	}

	// newest created active event wins
	event := events[0]
	tally, err := c.gateway.CountVotesForEvent(ctx, event.ID)
	if err != nil {
		c.log.Error("error fetching vote counts", "event", event.ID, "error", err)
		c.setVoting(&event, models.Tally{})
		return fmt.Errorf("%w: %w", ErrVotingDataLoadFailed, err)
	}
	c.setVoting(&event, tally)
	return nil
}

func (c *Controller) setVoting(event *models.VotingEvent, tally models.Tally) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if eventID(event) != eventID(c.activeEvent) {
		c.userVotes = map[string]struct{}{}
	}
	c.activeEvent = event
	c.tally = tally
}

// LoadUserVotes is a no-op until both a wallet and an active event are known.
// On failure the previous set is kept.
func (c *Controller) LoadUserVotes(ctx context.Context) error {
	c.mu.RLock()
	w, event := c.wallet, c.activeEvent
	c.mu.RUnlock()
	if w == nil || event == nil {
		return nil
	}
	address, ok := w.Address()
	if !ok {
		return nil
	}

	votes, err := c.gateway.ListUserVotesForEvent(ctx, address, event.ID)
	if err != nil {
		c.log.Error("error fetching user votes", "wallet", address, "event", event.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrUserVotesLoadFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// the wallet or event may have moved on while the request was in flight
	if c.walletAddress() != address || eventID(c.activeEvent) != event.ID {
		return nil
	}
	c.userVotes = models.VotedCards(votes)
	return nil
}

// OnVoteSucceeded refreshes the tally first, then the wallet's vote set.
// A failed tally refresh still leaves the event cached, so the vote set is
// reloaded either way.
func (c *Controller) OnVoteSucceeded(ctx context.Context) error {
	votingErr := c.loadVoting(ctx)
	return errors.Join(votingErr, c.LoadUserVotes(ctx))
}

// SetWallet connects w and re-syncs its votes for the active event
func (c *Controller) SetWallet(ctx context.Context, w wallet.Adapter) error {
	c.mu.Lock()
	c.wallet = w
	c.userVotes = map[string]struct{}{}
	c.mu.Unlock()
	return c.LoadUserVotes(ctx)
}

func (c *Controller) ClearWallet() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallet = nil
	c.userVotes = map[string]struct{}{}
}

// Wallet returns the connected adapter, or nil
func (c *Controller) Wallet() wallet.Adapter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wallet
}

func (c *Controller) ActiveEvent() *models.VotingEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.activeEvent == nil {
		return nil
	}
	e := *c.activeEvent
	return &e
}

// VoteCount returns the cached tally for a card, 0 when absent
func (c *Controller) VoteCount(cardID string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tally.Count(cardID)
}

func (c *Controller) HasVoted(cardID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.userVotes[cardID]
	return ok
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Cryptids:  append([]models.Cryptid(nil), c.cryptids...),
		Tally:     make(models.Tally, len(c.tally)),
		UserVotes: make(map[string]struct{}, len(c.userVotes)),
	}
	if c.activeEvent != nil {
		e := *c.activeEvent
		s.ActiveEvent = &e
	}
	for k, v := range c.tally {
		s.Tally[k] = v
	}
	for k := range c.userVotes {
		s.UserVotes[k] = struct{}{}
	}
	s.Wallet = c.walletAddress()
	return s
}

// walletAddress must be called with mu held
func (c *Controller) walletAddress() string {
	if c.wallet == nil {
		return ""
	}
	address, _ := c.wallet.Address()
	return address
}

func eventID(e *models.VotingEvent) string {
	if e == nil {
		return ""
	}
	return e.ID
}
