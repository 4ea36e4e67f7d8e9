package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cryptid-vote-backend/config"
	"cryptid-vote-backend/database"
	"cryptid-vote-backend/repository"
	"cryptid-vote-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	registry *prometheus.Registry
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupTestEnvironment builds the API over a seeded in-memory SQLite database
func SetupTestEnvironment(t *testing.T, limiter service.RateLimiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.SQLitePath = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(cfg, discardLogger())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close(db, discardLogger()) })

	require.NoError(t, database.Migrate(db, discardLogger()))
	require.NoError(t, database.Seed(db, time.Now(), discardLogger()))

	gateway := repository.NewGormGateway(db)
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	recorder := service.NewVoteRecorder(gateway, nil, limiter, discardLogger())

	router := gin.New()
	router.Use(metrics.Middleware())
	router.GET("/metrics", MetricsHandler(registry))
	api := router.Group("/api")
	NewHealthHandler(gateway, nil, nil, false).RegisterRoutes(api)
	NewCatalogHandler(gateway, discardLogger()).RegisterRoutes(api)
	NewVotingHandler(gateway, recorder, metrics, discardLogger()).RegisterRoutes(api)
	NewSubmissionHandler(gateway, metrics, discardLogger()).RegisterRoutes(api)

	return &testEnv{router: router, db: db, registry: registry}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}


