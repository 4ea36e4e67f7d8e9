package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tier is the categorical rank of a cryptid card
type Tier string

const (
	TierSSSPlus Tier = "SSS+"
	TierSPlus   Tier = "S+"
	TierA       Tier = "A"
	TierB       Tier = "B"
	TierC       Tier = "C"
)

// tierOrder lists tiers from highest to lowest
var tierOrder = []Tier{TierSSSPlus, TierSPlus, TierA, TierB, TierC}

var tierLabels = map[Tier]string{
	TierSSSPlus: "SSS+ LEGENDARY",
	TierSPlus:   "S TIER EPIC",
	TierA:       "A TIER RARE",
	TierB:       "B TIER UNCOMMON",
	TierC:       "C TIER UNUSUAL",
}

// Rank returns the position of the tier, 0 being the highest. Unknown tiers rank last.
func (t Tier) Rank() int {
	for i, known := range tierOrder {
		if t == known {
			return i
		}
	}
	return len(tierOrder)
}

// Label returns the display label, or the raw value for unknown tiers
func (t Tier) Label() string {
	if label, ok := tierLabels[t]; ok {
		return label
	}
	return string(t)
}

// Valid reports whether the tier is one of the known ranks
func (t Tier) Valid() bool {
	_, ok := tierLabels[t]
	return ok
}

// IncidentReports is stored as a JSON column on the cryptid row
type IncidentReports struct {
	WitnessCredibility   string `json:"witness_credibility"`
	MostRecentSighting   string `json:"most_recent_sighting"`
	PhotographicEvidence string `json:"photographic_evidence"`
}

// Cryptid is a read-only catalog card, seeded out of band
type Cryptid struct {
	ID                 string          `gorm:"primaryKey;size:36" json:"id"`
	Name               string          `gorm:"not null" json:"name"`
	Rarity             string          `json:"rarity"`
	Tier               Tier            `gorm:"size:8;index" json:"tier"`
	Category           string          `json:"category"`
	Mood               string          `json:"mood"`
	ThreatLevel        string          `json:"threat_level"`
	ResearchCompletion int             `gorm:"default:0" json:"research_completion"`
	LastSeen           string          `json:"last_seen"`
	Habitat            string          `json:"habitat"`
	ActiveHours        string          `json:"active_hours"`
	FirstSighting      string          `json:"first_sighting"`
	SmellsLike         string          `json:"smells_like"`
	KnownWeakness      string          `json:"known_weakness"`
	Lore               string          `gorm:"type:text" json:"lore"`
	FieldNotes         string          `gorm:"type:text" json:"field_notes"`
	IncidentReports    IncidentReports `gorm:"serializer:json;type:text" json:"incident_reports"`
	OriginalImage      string          `json:"original_image"`
	NFTImage           string          `gorm:"column:nft_image" json:"nft_image"`
	AnimationURL       *string         `json:"animation_url"`
	Classification     string          `json:"classification"`
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a uuid when the seeder did not provide one
func (c *Cryptid) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
