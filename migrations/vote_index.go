package migrations

import (
	"log/slog"

	"cryptid-vote-backend/models"

	"gorm.io/gorm"
)

// EnsureVoteUniqueIndex creates the (wallet, voting_event_id, card_id) unique
// index on votes tables created before it existed
func EnsureVoteUniqueIndex(db *gorm.DB, log *slog.Logger) error {
	if db.Migrator().HasIndex(&models.Vote{}, models.VoteUniqueIndex) {
		log.Debug("migration skipped: vote unique index exists")
		return nil
	}

	if err := db.Migrator().CreateIndex(&models.Vote{}, models.VoteUniqueIndex); err != nil {
		log.Error("migration failed: create vote unique index", "error", err)
		return err
	}
	log.Info("migration applied: vote unique index created")
	return nil
}

type duplicateVote struct {
	Wallet        string
	VotingEventID string
	CardID        string
	N             int64
}

// DedupeVotes keeps the earliest vote of every (wallet, event, card) tuple
// and deletes the rest, in one transaction
func DedupeVotes(db *gorm.DB, log *slog.Logger) error {
	var removed int
	err := db.Transaction(func(tx *gorm.DB) error {
		var dups []duplicateVote
		err := tx.Model(&models.Vote{}).
			Select("wallet, voting_event_id, card_id, COUNT(*) AS n").
			Group("wallet, voting_event_id, card_id").
			Having("COUNT(*) > 1").
			Scan(&dups).Error
		if err != nil {
			return err
		}

		for _, d := range dups {
			var votes []models.Vote
			err := tx.Where("wallet = ? AND voting_event_id = ? AND card_id = ?", d.Wallet, d.VotingEventID, d.CardID).
				Order("created_at ASC, id ASC").
				Find(&votes).Error
			if err != nil {
				return err
			}
			if len(votes) < 2 {
				continue
			}
			ids := make([]string, 0, len(votes)-1)
			for _, v := range votes[1:] {
				ids = append(ids, v.ID)
			}
			if err := tx.Where("id IN ?", ids).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			removed += len(ids)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if removed > 0 {
		log.Warn("migration applied: duplicate votes removed", "count", removed)
	}
	return nil
}
