package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is the build version, set with -ldflags
var Version = "0.1.0"

// Pinger checks backend connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueStatus reports the notification queue
type QueueStatus interface {
	Driver() string
	Stats(ctx context.Context) map[string]int64
}

// SystemInfo contains basic system metrics and information
type SystemInfo struct {
	Status           string           `json:"status"`
	Version          string           `json:"version"`
	Uptime           string           `json:"uptime"`
	StartTime        time.Time        `json:"start_time"`
	CurrentTime      time.Time        `json:"current_time"`
	GoVersion        string           `json:"go_version"`
	NumGoroutine     int              `json:"num_goroutine"`
	NumCPU           int              `json:"num_cpu"`
	DBStatus         string           `json:"db_status"`
	CacheEnabled     bool             `json:"cache_enabled"`
	QueueDriver      string           `json:"queue_driver,omitempty"`
	QueueStats       map[string]int64 `json:"queue_stats,omitempty"`
	WebsocketClients int              `json:"websocket_clients"`
}

type HealthHandler struct {
	db           Pinger
	queue        QueueStatus
	clients      func() int
	cacheEnabled bool
	startTime    time.Time
}

// NewHealthHandler builds the health endpoints. queue and clients may be nil.
func NewHealthHandler(db Pinger, queue QueueStatus, clients func() int, cacheEnabled bool) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, clients: clients, cacheEnabled: cacheEnabled, startTime: time.Now()}
}

func (h *HealthHandler) RegisterRoutes(api gin.IRouter) {
	api.GET("/health", h.HealthCheck)
	api.GET("/status", h.SystemStatus)
}

// HealthCheck is the liveness probe
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// SystemStatus reports process and dependency status. A failing database
// answers 503.
func (h *HealthHandler) SystemStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	info := SystemInfo{
		Status:       "ok",
		Version:      Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		StartTime:    h.startTime,
		CurrentTime:  time.Now(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		DBStatus:     "ok",
		CacheEnabled: h.cacheEnabled,
	}
	if err := h.db.Ping(ctx); err != nil {
		info.Status = "degraded"
		info.DBStatus = "error"
	}
	if h.queue != nil {
		info.QueueDriver = h.queue.Driver()
		info.QueueStats = h.queue.Stats(ctx)
	}
	if h.clients != nil {
		info.WebsocketClients = h.clients()
	}

	status := http.StatusOK
	if info.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, info)
}
