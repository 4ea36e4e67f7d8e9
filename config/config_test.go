package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "memory", cfg.MQDriver)
	assert.False(t, cfg.SightingsEnabled)
	assert.Equal(t, 30*time.Second, cfg.TallyCacheTTL)
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yamlPath := filepath.Join(dir, "cryptid.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("httpAddr: \":9000\"\ndbName: fromyaml\ntallyCacheTTL: 5s\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_NAME=fromdotenv\n"), 0o600))
	t.Setenv("HTTP_ADDR", ":9100")
	t.Cleanup(func() { os.Unsetenv("DB_NAME") })

	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.HTTPAddr, "environment wins over yaml")
	assert.Equal(t, "fromdotenv", cfg.DBName, ".env wins over yaml")
	assert.Equal(t, 5*time.Second, cfg.TallyCacheTTL)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidDriver)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	cfg := Default()
	cfg.DBPassword = "secret"
	assert.Equal(t, "root:secret@tcp(localhost:3306)/cryptid_votes?charset=utf8mb4&parseTime=True&loc=UTC", cfg.MySQLDSN())
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	cfg.LogLevel = "debug"
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	cfg.LogLevel = "WARN"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	cfg.LogLevel = "loud"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
