package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"cryptid-vote-backend/models"

	"gorm.io/gorm"
)

var (
	// ErrUniqueViolation means the backend refused a write because the row already exists
	ErrUniqueViolation   = errors.New("unique constraint violation")
	ErrNotFound          = errors.New("record not found")
	// ErrLookupUnsupported is returned when the wrapped gateway cannot find single events
	ErrLookupUnsupported = errors.New("voting event lookup not supported")
)

// Gateway is the remote data backend as seen by the vote client.
// Implementations must map uniqueness rejections to ErrUniqueViolation.
type Gateway interface {
	// ListCryptids returns the catalog, newest created first
	ListCryptids(ctx context.Context) ([]models.Cryptid, error)
	// ListActiveVotingEvents returns events with start <= now <= end, newest created first
	ListActiveVotingEvents(ctx context.Context, now time.Time) ([]models.VotingEvent, error)
	ListUserVotesForEvent(ctx context.Context, wallet, eventID string) ([]models.Vote, error)
	ListVotesForEvent(ctx context.Context, eventID string) ([]models.Vote, error)
	InsertVote(ctx context.Context, wallet, cardID, eventID string) (*models.Vote, error)
	// CountVotesForEvent groups every vote of the event by card id.
	// Cards with no votes are absent.
	CountVotesForEvent(ctx context.Context, eventID string) (models.Tally, error)
	InsertSubmission(ctx context.Context, in models.SubmissionInput) (*models.CryptidSubmission, error)
}

// EventFinder looks up one voting event by id
type EventFinder interface {
	FindVotingEvent(ctx context.Context, id string) (*models.VotingEvent, error)
}

// isUniqueViolation recognises duplicate key errors from gorm's translator
// and from drivers that bypass it
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrUniqueViolation) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}
