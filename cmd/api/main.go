// Command api is the Scoracle Live API server.
//
// Usage:
//
//	scoracle-live
//	API_PORT=8080 SIDECHANNEL_BACKEND=redis REDIS_URL=redis://localhost:6379/0 scoracle-live

// @title Scoracle Live API
// @version 1.0
// @description Live basketball match scoring. Matches are driven by commands with undo/redo, streamed over WebSockets and finalized into Postgres.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Scoracle
// @license.name MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/albapepper/scoracle-live/internal/api"
	"github.com/albapepper/scoracle-live/internal/api/handler"
	"github.com/albapepper/scoracle-live/internal/broadcast"
	"github.com/albapepper/scoracle-live/internal/cache"
	"github.com/albapepper/scoracle-live/internal/config"
	"github.com/albapepper/scoracle-live/internal/db"
	"github.com/albapepper/scoracle-live/internal/finalize"
	"github.com/albapepper/scoracle-live/internal/fixture"
	"github.com/albapepper/scoracle-live/internal/listener"
	"github.com/albapepper/scoracle-live/internal/live"
	"github.com/albapepper/scoracle-live/internal/maintenance"
	"github.com/albapepper/scoracle-live/internal/provider/league"
	"github.com/albapepper/scoracle-live/internal/sidechannel"

	_ "github.com/albapepper/scoracle-live/docs" // swagger docs
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Debug {
		level.Set(slog.LevelDebug)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Connect to database (optional)
	var (
		pool   *db.Pool
		pgPool *pgxpool.Pool
	)
	if cfg.HasDatabase() {
		logger.Info("Connecting to database...")
		pool, err = db.New(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pgPool = pool.Pool
		logger.Info("Database connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
	} else {
		logger.Info("No DATABASE_URL; fixtures, finalize and command listener disabled")
	}

	// Open the side-channel
	scOpts := cfg.SideChannelOptions()
	scOpts.Pool = pgPool
	store, err := sidechannel.Open(ctx, scOpts)
	if err != nil {
		logger.Error("Failed to open side-channel", "backend", cfg.SideChannelBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Side-channel opened", "backend", cfg.SideChannelBackend)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	defer appCache.Close()
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// WebSocket hub and optional Redis stream
	hub := broadcast.NewHub(logger)
	hub.AllowOrigins(cfg.CORSAllowOrigins)
	go hub.Run(ctx)
	publishers := []broadcast.Publisher{hub}

	if cfg.StreamPublishEnabled {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		publishers = append(publishers, broadcast.NewStreamPublisher(rdb, broadcast.DefaultStreamMaxLen, logger))
		logger.Info("Snapshot stream publishing enabled")
	}

	// Live matches
	mgr := live.NewManager(ctx, live.Options{
		Store:           store,
		Capacity:        cfg.HistoryCapacity,
		PersistDebounce: cfg.PersistDebounce,
		Publishers:      publishers,
		Logger:          logger,
	})

	// Fixture sources and finalizers
	var (
		src   fixture.Source
		chain finalize.Chain
	)
	if pgPool != nil {
		src = fixture.NewPGSource(pgPool)
		chain = append(chain, finalize.NewPGFinalizer(pgPool))
	}
	if cfg.HasLeagueAPI() {
		lc := league.NewClient(cfg.LeagueAPIURL, cfg.LeagueAPIKey, cfg.LeagueAPIRPM, logger)
		if src == nil {
			src = lc
		}
		chain = append(chain, finalize.Remote{Submitter: lc})
		logger.Info("League API configured", "url", cfg.LeagueAPIURL, "rpm", cfg.LeagueAPIRPM)
	}
	if src != nil {
		src = fixture.NewCachedSource(src, appCache)
	}
	var finalizer finalize.Finalizer
	if len(chain) > 0 {
		finalizer = chain
	}

	// Start LISTEN/NOTIFY consumer for commands from other services
	if pgPool != nil {
		go listener.Start(ctx, cfg.DatabaseURL, mgr, logger)
	}

	// Start maintenance tickers (idle eviction, side-channel purge)
	maint := maintenance.DefaultConfig()
	maint.IdleTimeout = cfg.SessionIdleTimeout
	go maintenance.Start(ctx, mgr, store, maint, logger)

	// Create router
	router := api.NewRouter(handler.Deps{
		Base:      ctx,
		Manager:   mgr,
		Hub:       hub,
		Pool:      pgPool,
		Cache:     appCache,
		Fixtures:  src,
		Finalizer: finalizer,
		Config:    cfg,
		Logger:    logger,
	}, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Scoracle Live API",
			"addr", addr,
			"environment", cfg.Environment,
			"sidechannel", cfg.SideChannelBackend,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	mgr.Shutdown(shutdownCtx)
	logger.Info("Server stopped")
}
