package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VoteUniqueIndex is the composite unique index enforcing one vote per (wallet, event, card)
const VoteUniqueIndex = "idx_votes_wallet_event_card"

// VotingEvent is a time-boxed window during which votes may be cast
type VotingEvent struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	StartTime   time.Time `gorm:"not null;index" json:"start_time"`
	EndTime     time.Time `gorm:"not null;index" json:"end_time"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// IsActive reports whether now falls within [StartTime, EndTime], both bounds inclusive
func (e VotingEvent) IsActive(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}

func (e *VotingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Vote is a single (wallet, event, card) attestation
type Vote struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Wallet        string    `gorm:"size:64;not null;uniqueIndex:idx_votes_wallet_event_card,priority:1" json:"wallet"`
	CardID        string    `gorm:"column:card_id;size:36;not null;index;uniqueIndex:idx_votes_wallet_event_card,priority:3" json:"card_id"`
	VotingEventID string    `gorm:"column:voting_event_id;size:36;not null;index;uniqueIndex:idx_votes_wallet_event_card,priority:2" json:"voting_event_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// Tally maps card id to the number of votes in one event.
// Cards without votes are absent.
type Tally map[string]int64

// Count returns the votes for a card, 0 when absent
func (t Tally) Count(cardID string) int64 {
	return t[cardID]
}

// Total returns the number of votes over all cards
func (t Tally) Total() int64 {
	var total int64
	for _, n := range t {
		total += n
	}
	return total
}

// TallyFromVotes groups votes by card id
func TallyFromVotes(votes []Vote) Tally {
	tally := make(Tally)
	for _, v := range votes {
		tally[v.CardID]++
	}
	return tally
}

// VotedCards returns the set of card ids present in votes
func VotedCards(votes []Vote) map[string]struct{} {
	set := make(map[string]struct{}, len(votes))
	for _, v := range votes {
		set[v.CardID] = struct{}{}
	}
	return set
}
