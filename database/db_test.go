package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"cryptid-vote-backend/config"
	"cryptid-vote-backend/migrations"
	"cryptid-vote-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.Default()
	cfg.SQLitePath = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))

	db, err := Open(cfg, testLogger())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { Close(db, testLogger()) })
	return db
}

func TestOpenUnsupportedDriver(t *testing.T) {
	cfg := config.Default()
	cfg.DBDriver = "postgres"
	_, err := Open(cfg, testLogger())
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestMigrateAndSeed(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db, testLogger()))
	assert.True(t, db.Migrator().HasIndex(&models.Vote{}, models.VoteUniqueIndex))

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, Seed(db, now, testLogger()))
	// second run is a no-op
	require.NoError(t, Seed(db, now, testLogger()))

	var cryptids int64
	require.NoError(t, db.Model(&models.Cryptid{}).Count(&cryptids).Error)
	assert.Equal(t, int64(len(sampleCryptids())), cryptids)

	var event models.VotingEvent
	require.NoError(t, db.First(&event).Error)
	assert.True(t, event.IsActive(now))
}

func TestUniqueIndexRejectsDuplicateVote(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db, testLogger()))

	require.NoError(t, db.Create(&models.Vote{Wallet: "w1", CardID: "c1", VotingEventID: "e1"}).Error)
	err := db.Create(&models.Vote{Wallet: "w1", CardID: "c1", VotingEventID: "e1"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// same wallet, different card is fine
	assert.NoError(t, db.Create(&models.Vote{Wallet: "w1", CardID: "c2", VotingEventID: "e1"}).Error)
}

type legacyVote struct {
	ID            string `gorm:"primaryKey"`
	Wallet        string
	CardID        string
	VotingEventID string
	CreatedAt     time.Time
}

func (legacyVote) TableName() string { return "votes" }

func TestMigrateDedupesLegacyVotes(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&legacyVote{}))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []legacyVote{
		{ID: "a", Wallet: "w1", CardID: "c1", VotingEventID: "e1", CreatedAt: base},
		{ID: "b", Wallet: "w1", CardID: "c1", VotingEventID: "e1", CreatedAt: base.Add(time.Second)},
		{ID: "c", Wallet: "w1", CardID: "c1", VotingEventID: "e1", CreatedAt: base.Add(2 * time.Second)},
		{ID: "d", Wallet: "w2", CardID: "c1", VotingEventID: "e1", CreatedAt: base},
	}
	require.NoError(t, db.Create(&rows).Error)

	require.NoError(t, Migrate(db, testLogger()))

	var ids []string
	require.NoError(t, db.Model(&models.Vote{}).Order("id").Pluck("id", &ids).Error)
	assert.Equal(t, []string{"a", "d"}, ids)
	assert.True(t, db.Migrator().HasIndex(&models.Vote{}, models.VoteUniqueIndex))
}

func TestMigrateSkipsDedupeOnceIndexExists(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db, testLogger()))

	var scans int
	countHaving := func(tx *gorm.DB) {
		if strings.Contains(tx.Statement.SQL.String(), "HAVING") {
			scans++
		}
	}
	require.NoError(t, db.Callback().Row().After("gorm:row").Register("test:count_having_row", countHaving))
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:count_having_query", countHaving))

	require.NoError(t, Migrate(db, testLogger()))
	assert.Zero(t, scans)
}

func TestDedupeVotesRollsBackOnFailure(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&legacyVote{}))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []legacyVote{
		{ID: "a", Wallet: "w1", CardID: "c1", VotingEventID: "e1", CreatedAt: base},
		{ID: "b", Wallet: "w1", CardID: "c1", VotingEventID: "e1", CreatedAt: base.Add(time.Second)},
		{ID: "c", Wallet: "w2", CardID: "c1", VotingEventID: "e1", CreatedAt: base},
		{ID: "d", Wallet: "w2", CardID: "c1", VotingEventID: "e1", CreatedAt: base.Add(time.Second)},
	}
	require.NoError(t, db.Create(&rows).Error)

	var deletes int
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_second_delete", func(tx *gorm.DB) {
		deletes++
		if deletes == 2 {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	require.Error(t, migrations.DedupeVotes(db, testLogger()))
	assert.Equal(t, 2, deletes)

	var count int64
	require.NoError(t, db.Model(&legacyVote{}).Count(&count).Error)
	assert.Equal(t, int64(4), count, "first group's delete must be rolled back")
}
