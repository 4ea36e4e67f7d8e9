package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cryptid-vote-backend/models"

	"gorm.io/gorm"
)

// GormGateway is the authoritative backend over the relational store
type GormGateway struct {
	db *gorm.DB
}

func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db}
}

func (g *GormGateway) ListCryptids(ctx context.Context) ([]models.Cryptid, error) {
	var cryptids []models.Cryptid
	if err := g.db.WithContext(ctx).Order("created_at DESC").Find(&cryptids).Error; err != nil {
		return nil, fmt.Errorf("list cryptids: %w", err)
	}
	return cryptids, nil
}

func (g *GormGateway) ListActiveVotingEvents(ctx context.Context, now time.Time) ([]models.VotingEvent, error) {
	now = now.UTC()
	var events []models.VotingEvent
	err := g.db.WithContext(ctx).
		Where("start_time <= ? AND end_time >= ?", now, now).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list active voting events: %w", err)
	}

	// sqlite compares timestamps as text; recheck the window on parsed values
	active := events[:0]
	for _, e := range events {
		if e.IsActive(now) {
			active = append(active, e)
		}
	}
	return active, nil
}

func (g *GormGateway) FindVotingEvent(ctx context.Context, id string) (*models.VotingEvent, error) {
	var event models.VotingEvent
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find voting event: %w", err)
	}
	return &event, nil
}

func (g *GormGateway) ListUserVotesForEvent(ctx context.Context, wallet, eventID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := g.db.WithContext(ctx).
		Where("wallet = ? AND voting_event_id = ?", wallet, eventID).
		Order("created_at ASC").
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("list user votes: %w", err)
	}
	return votes, nil
}

func (g *GormGateway) ListVotesForEvent(ctx context.Context, eventID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := g.db.WithContext(ctx).
		Where("voting_event_id = ?", eventID).
		Order("created_at ASC").
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return votes, nil
}

func (g *GormGateway) InsertVote(ctx context.Context, wallet, cardID, eventID string) (*models.Vote, error) {
	vote := models.Vote{Wallet: wallet, CardID: cardID, VotingEventID: eventID}
	if err := g.db.WithContext(ctx).Create(&vote).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrUniqueViolation, models.VoteUniqueIndex)
		}
		return nil, fmt.Errorf("insert vote: %w", err)
	}
	return &vote, nil
}

type cardCount struct {
	CardID string
	N      int64
}

func (g *GormGateway) CountVotesForEvent(ctx context.Context, eventID string) (models.Tally, error) {
	var rows []cardCount
	err := g.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("card_id, COUNT(*) AS n").
		Where("voting_event_id = ?", eventID).
		Group("card_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}

	tally := make(models.Tally, len(rows))
	for _, r := range rows {
		tally[r.CardID] = r.N
	}
	return tally, nil
}

func (g *GormGateway) InsertSubmission(ctx context.Context, in models.SubmissionInput) (*models.CryptidSubmission, error) {
	sub := models.CryptidSubmission{
		Wallet:      in.Wallet,
		Signature:   in.Signature,
		CryptidName: in.CryptidName,
		Platform:    in.Platform,
		PlatformURL: in.PlatformURL,
		Lore:        in.Lore,
		ImageURL:    in.ImageURL,
		Status:      models.SubmissionPending,
	}
	if err := g.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	return &sub, nil
}

// Ping checks the database connection
func (g *GormGateway) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
