package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cryptid-vote-backend/cache"
	"cryptid-vote-backend/models"
)

const catalogCacheKey = "catalog:cryptids"

// TallyStore caches per-event tallies
type TallyStore interface {
	Get(ctx context.Context, eventID string) (models.Tally, error)
	Set(ctx context.Context, eventID string, tally models.Tally) error
	Invalidate(ctx context.Context, eventID string) error
}

// CachedGateway puts redis in front of another gateway. The catalog goes
// through the hot cache; tallies are cached per event and dropped on every
// vote insert. Cache failures are logged and never surface to callers.
type CachedGateway struct {
	Gateway
	hot        *cache.HotCache
	tallies    TallyStore
	catalogTTL time.Duration
	log        *slog.Logger
}

func NewCachedGateway(inner Gateway, hot *cache.HotCache, tallies TallyStore, catalogTTL time.Duration, log *slog.Logger) *CachedGateway {
	return &CachedGateway{
		Gateway:    inner,
		hot:        hot,
		tallies:    tallies,
		catalogTTL: catalogTTL,
		log:        log,
	}
}

func (g *CachedGateway) ListCryptids(ctx context.Context) ([]models.Cryptid, error) {
	return cache.GetOrLoad(ctx, g.hot, catalogCacheKey, g.catalogTTL, g.Gateway.ListCryptids)
}

func (g *CachedGateway) CountVotesForEvent(ctx context.Context, eventID string) (models.Tally, error) {
	tally, err := g.tallies.Get(ctx, eventID)
	if err == nil {
		return tally, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		g.log.Warn("tally cache read failed", "event", eventID, "error", err)
	}

	tally, err = g.Gateway.CountVotesForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := g.tallies.Set(ctx, eventID, tally); err != nil {
		g.log.Warn("tally cache write failed", "event", eventID, "error", err)
	}
	return tally, nil
}

func (g *CachedGateway) InsertVote(ctx context.Context, wallet, cardID, eventID string) (*models.Vote, error) {
	vote, err := g.Gateway.InsertVote(ctx, wallet, cardID, eventID)
	if err != nil {
		return nil, err
	}
	g.InvalidateTally(ctx, eventID)
	return vote, nil
}

// FindVotingEvent passes through uncached to the inner gateway
func (g *CachedGateway) FindVotingEvent(ctx context.Context, id string) (*models.VotingEvent, error) {
	finder, ok := g.Gateway.(EventFinder)
	if !ok {
		return nil, ErrLookupUnsupported
	}
	return finder.FindVotingEvent(ctx, id)
}

// InvalidateTally drops the cached tally of one event
func (g *CachedGateway) InvalidateTally(ctx context.Context, eventID string) {
	if err := g.tallies.Invalidate(ctx, eventID); err != nil {
		g.log.Warn("tally cache invalidate failed", "event", eventID, "error", err)
	}
}

// InvalidateCatalog drops the cached cryptid list
func (g *CachedGateway) InvalidateCatalog(ctx context.Context) {
	if err := g.hot.Invalidate(ctx, catalogCacheKey); err != nil {
		g.log.Warn("catalog cache invalidate failed", "error", err)
	}
}
