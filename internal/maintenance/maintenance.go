// Package maintenance runs periodic background tasks as Go tickers: closing
// live matches nobody is scoring and purging stale side-channel documents.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/scoracle-live/internal/sidechannel"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	EvictInterval time.Duration // Close idle live matches
	IdleTimeout   time.Duration // How long a stopped match may sit untouched
	PurgeInterval time.Duration // Drop stale side-channel documents
	PurgeAge      time.Duration // Age past which a document is stale
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		EvictInterval: 5 * time.Minute,
		IdleTimeout:   6 * time.Hour,
		PurgeInterval: 1 * time.Hour,
		PurgeAge:      7 * 24 * time.Hour,
	}
}

// Evictor closes idle matches. Implemented by live.Manager.
type Evictor interface {
	EvictIdle(ctx context.Context, maxIdle time.Duration) []string
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, ev Evictor, store sidechannel.Store, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"evict", cfg.EvictInterval,
		"idle_timeout", cfg.IdleTimeout,
		"purge", cfg.PurgeInterval,
		"purge_age", cfg.PurgeAge)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Evict: close stopped matches that have gone quiet; history stays saved
	if cfg.EvictInterval > 0 && cfg.IdleTimeout > 0 && ev != nil {
		t := time.NewTicker(cfg.EvictInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "evict", func() { ev.EvictIdle(ctx, cfg.IdleTimeout) })
	}

	// Purge: only for stores that keep rows around (sqlite, postgres)
	if _, ok := store.(sidechannel.Purger); ok && cfg.PurgeInterval > 0 && cfg.PurgeAge > 0 {
		t := time.NewTicker(cfg.PurgeInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "purge", func() {
			if _, err := Purge(ctx, store, cfg.PurgeAge, logger); err != nil {
				logger.Warn("Purge: failed", "error", err)
			}
		})
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, name string, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}
