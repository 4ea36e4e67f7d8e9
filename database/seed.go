package database

import (
	"fmt"
	"log/slog"
	"time"

	"cryptid-vote-backend/models"

	"gorm.io/gorm"
)

// Seed inserts a sample catalog and one running voting event when the tables are empty
func Seed(db *gorm.DB, now time.Time, log *slog.Logger) error {
	var count int64
	if err := db.Model(&models.Cryptid{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count cryptids: %w", err)
	}
	if count > 0 {
		log.Info("catalog already populated, skipping seed")
		return nil
	}

	now = now.UTC()
	cryptids := sampleCryptids()
	// stagger creation times so newest-first ordering is deterministic
	for i := range cryptids {
		cryptids[i].CreatedAt = now.Add(-time.Duration(len(cryptids)-i) * time.Minute)
	}

	description := "Community vote for the next cryptid to launch"
	event := models.VotingEvent{
		Name:        "Cryptid Launch Vote",
		Description: &description,
		StartTime:   now.Add(-time.Hour),
		EndTime:     now.Add(7 * 24 * time.Hour),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&cryptids).Error; err != nil {
			return err
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return fmt.Errorf("failed to seed sample data: %w", err)
	}

	log.Info("sample data created", "cryptids", len(cryptids), "voting_event", event.ID)
	return nil
}

func sampleCryptids() []models.Cryptid {
	return []models.Cryptid{
		{
			Name: "Bigfoot", Rarity: "Legendary", Tier: models.TierSSSPlus, Category: "Hominid",
			Mood: "Elusive", ThreatLevel: "Low", ResearchCompletion: 87, LastSeen: "Pacific Northwest",
			Habitat: "Old growth forest", ActiveHours: "Dusk", FirstSighting: "1958",
			SmellsLike: "Wet dog and pine", KnownWeakness: "Trail cameras",
			Lore:       "Leaves footprints, never receipts.",
			FieldNotes: "Subject refuses to be photographed in focus.",
			IncidentReports: models.IncidentReports{
				WitnessCredibility: "Mixed", MostRecentSighting: "Last week", PhotographicEvidence: "Blurry",
			},
			OriginalImage: "/images/bigfoot.png", NFTImage: "/nft/bigfoot.png", Classification: "Apex",
		},
		{
			Name: "Mothman", Rarity: "Epic", Tier: models.TierSPlus, Category: "Aerial",
			Mood: "Ominous", ThreatLevel: "Medium", ResearchCompletion: 64, LastSeen: "Point Pleasant",
			Habitat: "Abandoned munitions plant", ActiveHours: "Midnight", FirstSighting: "1966",
			SmellsLike: "Ozone", KnownWeakness: "Porch lights",
			Lore:       "Shows up right before things go sideways.",
			FieldNotes: "Red eyes confirmed by multiple witnesses.",
			IncidentReports: models.IncidentReports{
				WitnessCredibility: "High", MostRecentSighting: "Last month", PhotographicEvidence: "Inconclusive",
			},
			OriginalImage: "/images/mothman.png", NFTImage: "/nft/mothman.png", Classification: "Harbinger",
		},
		{
			Name: "Chupacabra", Rarity: "Rare", Tier: models.TierA, Category: "Predator",
			Mood: "Hungry", ThreatLevel: "High", ResearchCompletion: 52, LastSeen: "Puerto Rico",
			Habitat: "Farmland", ActiveHours: "Night", FirstSighting: "1995",
			SmellsLike: "Sulfur", KnownWeakness: "Guard llamas",
			Lore:       "Goats everywhere fear the name.",
			FieldNotes: "Spines along the back, possibly quills.",
			IncidentReports: models.IncidentReports{
				WitnessCredibility: "Low", MostRecentSighting: "Yesterday", PhotographicEvidence: "None",
			},
			OriginalImage: "/images/chupacabra.png", NFTImage: "/nft/chupacabra.png", Classification: "Drainer",
		},
		{
			Name: "Jersey Devil", Rarity: "Uncommon", Tier: models.TierB, Category: "Chimera",
			Mood: "Mischievous", ThreatLevel: "Medium", ResearchCompletion: 41, LastSeen: "Pine Barrens",
			Habitat: "Pine barrens", ActiveHours: "Storms", FirstSighting: "1735",
			SmellsLike: "Smoke", KnownWeakness: "Cannonballs",
			Lore:       "The thirteenth child took to the chimney.",
			FieldNotes: "Hoof prints on rooftops.",
			IncidentReports: models.IncidentReports{
				WitnessCredibility: "Medium", MostRecentSighting: "Last year", PhotographicEvidence: "Sketches",
			},
			OriginalImage: "/images/jersey-devil.png", NFTImage: "/nft/jersey-devil.png", Classification: "Folk",
		},
		{
			Name: "Fresno Nightcrawler", Rarity: "Unusual", Tier: models.TierC, Category: "Biped",
			Mood: "Serene", ThreatLevel: "None", ResearchCompletion: 23, LastSeen: "Fresno",
			Habitat: "Front yards", ActiveHours: "Late night", FirstSighting: "2007",
			SmellsLike: "Cut grass", KnownWeakness: "Motion lights",
			Lore:       "Walks like a pair of pants with somewhere to be.",
			FieldNotes: "Only ever caught on security footage.",
			IncidentReports: models.IncidentReports{
				WitnessCredibility: "High", MostRecentSighting: "Two years ago", PhotographicEvidence: "Video",
			},
			OriginalImage: "/images/nightcrawler.png", NFTImage: "/nft/nightcrawler.png", Classification: "Wanderer",
		},
	}
}
