package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cryptid-vote-backend/config"
	"cryptid-vote-backend/handlers"
	"cryptid-vote-backend/repository"
	"cryptid-vote-backend/service"
	"cryptid-vote-backend/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Dependencies is everything the router serves from
type Dependencies struct {
	Config   *config.Config
	Store    service.EventStore
	DB       handlers.Pinger
	Recorder *service.VoteRecorder
	Hub      *websocket.Hub
	Queue    handlers.QueueStatus
	Metrics  *handlers.Metrics
	Gatherer prometheus.Gatherer
	CacheOn  bool
	Log      *slog.Logger
}

// Server wraps the HTTP server
type Server struct {
	*http.Server
}

// SetupRouter configures the gin engine with middleware and all routes
func SetupRouter(deps Dependencies) *gin.Engine {
	if !deps.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(deps.Log))
	router.Use(deps.Metrics.Middleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if deps.Gatherer != nil {
		router.GET("/metrics", handlers.MetricsHandler(deps.Gatherer))
	}

	var clients func() int
	if deps.Hub != nil {
		clients = deps.Hub.ClientCount
	}

	api := router.Group("/api")
	{
		// health stays outside the limiter
		handlers.NewHealthHandler(deps.DB, deps.Queue, clients, deps.CacheOn).RegisterRoutes(api)

		limited := api.Group("")
		if deps.Config.EnableRateLimit {
			limited.Use(handlers.NewIPRateLimiter(deps.Config.RateLimitRPS, deps.Config.RateLimitBurst).Middleware())
		}
		handlers.NewCatalogHandler(deps.Store, deps.Log).RegisterRoutes(limited)
		handlers.NewVotingHandler(deps.Store, deps.Recorder, deps.Metrics, deps.Log).RegisterRoutes(limited)
		handlers.NewSubmissionHandler(deps.Store, deps.Metrics, deps.Log).RegisterRoutes(limited)
	}

	if deps.Hub != nil {
		websocket.NewHandler(deps.Hub, deps.Store, deps.Store, repository.ErrNotFound, deps.Log).RegisterRoutes(router)
	}

	return router
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}

// StartServer serves router on addr in the background. A listen failure is
// reported on the returned channel.
func StartServer(addr string, router http.Handler, log *slog.Logger) (*Server, <-chan error) {
	srv := &Server{
		&http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	return srv, errc
}

// Stop stops accepting connections and waits for in-flight requests
func (s *Server) Stop(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Server.Shutdown(ctx)
}
