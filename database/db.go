package database

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cryptid-vote-backend/config"
	"cryptid-vote-backend/migrations"
	"cryptid-vote-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open connects to mysql or sqlite according to cfg.DBDriver
func Open(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogLevel == "debug" {
		level = logger.Info
	}
	gormLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelInfo),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.MySQLDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		// unique index violations come back as gorm.ErrDuplicatedKey
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	log.Info("database connected", "driver", cfg.DBDriver)
	return db, nil
}

// Migrate creates or updates every table and the vote uniqueness index
func Migrate(db *gorm.DB, log *slog.Logger) error {
	// duplicates in a legacy votes table would make the unique index fail
	m := db.Migrator()
	if m.HasTable(&models.Vote{}) && !m.HasIndex(&models.Vote{}, models.VoteUniqueIndex) {
		if err := migrations.DedupeVotes(db, log); err != nil {
			return fmt.Errorf("failed to dedupe votes: %w", err)
		}
	}

	if err := db.AutoMigrate(
		&models.Cryptid{},
		&models.VotingEvent{},
		&models.Vote{},
		&models.CryptidSubmission{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	return migrations.EnsureVoteUniqueIndex(db, log)
}

// Close releases the underlying connection pool
func Close(db *gorm.DB, log *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Error("failed to get database handle", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("failed to close database", "error", err)
		return
	}
	log.Info("database closed")
}
