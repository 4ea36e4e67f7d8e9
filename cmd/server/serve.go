package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"cryptid-vote-backend/cache"
	"cryptid-vote-backend/config"
	"cryptid-vote-backend/database"
	"cryptid-vote-backend/handlers"
	"cryptid-vote-backend/mq"
	"cryptid-vote-backend/repository"
	"cryptid-vote-backend/routes"
	"cryptid-vote-backend/service"
	"cryptid-vote-backend/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout = 5 * time.Second

	// per wallet vote budget on the write path, enforced only with redis
	walletVoteWindow = time.Minute
	walletVoteLimit  = 30
)

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close(db, log)

	if err := database.Migrate(db, log); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if cfg.IsDevelopment() {
		if err := database.Seed(db, time.Now(), log); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
	}

	gormGateway := repository.NewGormGateway(db)
	var (
		store       service.EventStore = gormGateway
		invalidator service.TallyInvalidator
		limiter     service.RateLimiter
		rdb         *redis.Client
	)

	rdb, err = cache.Connect(ctx, cfg, log)
	if err != nil {
		log.Warn("redis unavailable, caching disabled", "error", err)
	} else {
		defer rdb.Close()
		locks := cache.NewLockService(rdb)
		cached := repository.NewCachedGateway(
			gormGateway,
			cache.NewHotCache(rdb, locks, log),
			cache.NewTallyCache(rdb, cfg.TallyCacheTTL),
			cfg.CatalogCacheTTL,
			log,
		)
		store = cached
		invalidator = cached
		limiter = cache.NewSlidingWindowLimiter(rdb, "vote_wallet", walletVoteWindow, walletVoteLimit)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := handlers.NewMetrics(registry)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(log)
	hub.OnCountChanged = metrics.SetWebsocketClients
	go hub.Run(hubCtx)

	queue := mq.New(cfg, rdb, log)
	defer queue.Close()
	broadcaster := service.NewTallyBroadcaster(store, invalidator, hub, log)
	if err := queue.Start(broadcaster.Handle); err != nil {
		return fmt.Errorf("failed to start %s queue consumer: %w", queue.Driver(), err)
	}
	log.Info("vote notifications ready", "driver", queue.Driver())

	router := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		Store:    store,
		DB:       gormGateway,
		Recorder: service.NewVoteRecorder(store, queue, limiter, log),
		Hub:      hub,
		Queue:    queue,
		Metrics:  metrics,
		Gatherer: registry,
		CacheOn:  rdb != nil,
		Log:      log,
	})

	srv, errc := routes.StartServer(cfg.HTTPAddr, router, log)
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	if err := srv.Stop(context.Background(), shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
