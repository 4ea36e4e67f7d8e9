package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Platform is the social platform a sighting was posted on
type Platform string

const (
	PlatformX         Platform = "X"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
)

// Valid reports whether p is a supported platform
func (p Platform) Valid() bool {
	switch p {
	case PlatformX, PlatformInstagram, PlatformYouTube, PlatformTikTok:
		return true
	default:
		return false
	}
}

// SubmissionStatus is the moderation state of a sighting report
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// CryptidSubmission is a wallet-signed sighting report awaiting moderation
type CryptidSubmission struct {
	ID               string           `gorm:"primaryKey;size:36" json:"id"`
	Wallet           string           `gorm:"size:64;not null;index" json:"wallet"`
	Signature        string           `gorm:"type:text;not null" json:"signature"`
	CryptidName      string           `gorm:"not null" json:"cryptid_name"`
	Platform         Platform         `gorm:"size:16;not null" json:"platform"`
	PlatformURL      string           `gorm:"not null" json:"platform_url"`
	Lore             string           `gorm:"type:text;not null" json:"lore"`
	ImageURL         *string          `json:"image_url,omitempty"`
	ImageStoragePath *string          `json:"image_storage_path,omitempty"`
	Status           SubmissionStatus `gorm:"size:16;not null;default:pending" json:"status"`
	ModeratorNotes   *string          `gorm:"type:text" json:"moderator_notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (s *CryptidSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = SubmissionPending
	}
	return nil
}

// SubmissionInput is what a client sends to create a sighting report
type SubmissionInput struct {
	Wallet      string   `json:"wallet" binding:"required"`
	Signature   string   `json:"signature" binding:"required"`
	CryptidName string   `json:"cryptid_name" binding:"required"`
	Platform    Platform `json:"platform" binding:"required"`
	PlatformURL string   `json:"platform_url" binding:"required"`
	Lore        string   `json:"lore" binding:"required"`
	ImageURL    *string  `json:"image_url,omitempty"`
}

// VoteInput is what a client sends to cast a vote
type VoteInput struct {
	Wallet        string `json:"wallet" binding:"required"`
	CardID        string `json:"card_id" binding:"required"`
	VotingEventID string `json:"voting_event_id" binding:"required"`
}
