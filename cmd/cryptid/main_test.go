package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cryptid-vote-backend/config"
	"cryptid-vote-backend/database"
	"cryptid-vote-backend/repository"
	"cryptid-vote-backend/routes"
	"cryptid-vote-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	cfg.SQLitePath = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(cfg, log)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close(db, log) })
	require.NoError(t, database.Migrate(db, log))
	require.NoError(t, database.Seed(db, time.Now(), log))

	gw := repository.NewGormGateway(db)
	router := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		Store:    gw,
		DB:       gw,
		Recorder: service.NewVoteRecorder(gw, nil, nil, log),
		Log:      log,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type cli struct {
	t       *testing.T
	api     string
	keypair string
}

func newCLI(t *testing.T) *cli {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SIGHTINGS_ENABLED", "false")
	return &cli{t: t, api: newBackend(t).URL, keypair: filepath.Join(t.TempDir(), "wallet.json")}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(append(args, "--api", c.api, "--keypair", c.keypair))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestKeygen(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "keygen")
	require.NoError(t, err)
	assert.Contains(t, out, "Address: ")

	_, err = c.run("", "keygen")
	assert.ErrorContains(t, err, "already exists")

	_, err = c.run("", "keygen", "--force")
	assert.NoError(t, err)
}

func TestCatalogAndVoting(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "Bigfoot")
	assert.Contains(t, out, "SSS+ LEGENDARY")

	out, err = c.run("", "catalog", "--by-tier")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 1)
	assert.Contains(t, lines[1], "Bigfoot")

	out, err = c.run("", "voting")
	require.NoError(t, err)
	assert.Contains(t, out, "Cryptid Launch Vote")
	assert.Contains(t, out, "TOTAL")
}

func TestVoteFlow(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "keygen")
	require.NoError(t, err)

	out, err := c.run("y\n", "vote", "Mothman")
	require.NoError(t, err)
	assert.Contains(t, out, "Sign message \"Vote for cryptid ")
	assert.Contains(t, out, "now has 1 vote(s)")

	_, err = c.run("y\n", "vote", "Mothman")
	assert.EqualError(t, err, "You have already voted. 1 Vote per Wallet")

	out, err = c.run("", "voting")
	require.NoError(t, err)
	assert.Contains(t, out, "Mothman")
}

func TestVoteDeclinedThenRetried(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "keygen")
	require.NoError(t, err)

	_, err = c.run("n\n", "vote", "Bigfoot")
	assert.EqualError(t, err, "Vote cancelled")

	out, err := c.run("yes\n", "vote", "Bigfoot")
	require.NoError(t, err)
	assert.Contains(t, out, "now has 1 vote(s)")
}

func TestVoteErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("y\n", "vote", "Mothman")
	assert.EqualError(t, err, "Please connect your wallet first")

	_, err = c.run("", "keygen")
	require.NoError(t, err)
	_, err = c.run("y\n", "vote", "Nessie")
	assert.ErrorContains(t, err, "unknown cryptid")
}

func TestReportSighting(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "keygen")
	require.NoError(t, err)
	args := []string{"report-sighting", "--name", "Mothman", "--url", "https://x.com/a/status/1", "--lore", "red eyes"}

	_, err = c.run("y\n", args...)
	assert.EqualError(t, err, "Sighting reports are coming soon")

	t.Setenv("SIGHTINGS_ENABLED", "true")
	out, err := c.run("y\n", args...)
	require.NoError(t, err)
	assert.Contains(t, out, "status pending")

	_, err = c.run("n\n", args...)
	assert.EqualError(t, err, "Signature cancelled")
}

func TestPromptApprover(t *testing.T) {
	var out bytes.Buffer
	approve := promptApprover(strings.NewReader("Y\nnope\n"), &out)

	ok, err := approve(context.Background(), []byte("msg"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = approve(context.Background(), []byte("msg"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = approve(context.Background(), []byte("msg"))
	require.NoError(t, err)
	assert.False(t, ok, "end of input declines")
	assert.Equal(t, 3, strings.Count(out.String(), "[y/N]"))
}
