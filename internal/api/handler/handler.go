// Package handler provides HTTP handlers for all API endpoints.
// Handlers drive the live match manager directly; there is no service layer.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-live/internal/api/respond"
	"github.com/albapepper/scoracle-live/internal/broadcast"
	"github.com/albapepper/scoracle-live/internal/cache"
	"github.com/albapepper/scoracle-live/internal/config"
	"github.com/albapepper/scoracle-live/internal/finalize"
	"github.com/albapepper/scoracle-live/internal/fixture"
	"github.com/albapepper/scoracle-live/internal/live"
)

// Deps are the collaborators the handlers need. Pool, Fixtures and
// Finalizer are optional; the endpoints that need them answer 503 without.
type Deps struct {
	Base      context.Context // lifetime of WebSocket pumps
	Manager   *live.Manager
	Hub       *broadcast.Hub
	Pool      *pgxpool.Pool
	Cache     *cache.Cache
	Fixtures  fixture.Source
	Finalizer finalize.Finalizer
	Config    *config.Config
	Logger    *slog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	base      context.Context
	mgr       *live.Manager
	hub       *broadcast.Hub
	pool      *pgxpool.Pool
	cache     *cache.Cache
	fixtures  fixture.Source
	finalizer finalize.Finalizer
	cfg       *config.Config
	logger    *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	h := &Handler{
		base:      d.Base,
		mgr:       d.Manager,
		hub:       d.Hub,
		pool:      d.Pool,
		cache:     d.Cache,
		fixtures:  d.Fixtures,
		finalizer: d.Finalizer,
		cfg:       d.Config,
		logger:    d.Logger,
	}
	if h.base == nil {
		h.base = context.Background()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.cfg == nil {
		h.cfg = &config.Config{}
	}
	if h.cache == nil {
		h.cache = cache.New(false)
	}
	return h
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the number of open matches.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":         "Scoracle Live API",
		"version":      "1.0.0",
		"status":       "running",
		"docs":         "/docs",
		"open_matches": h.mgr.Len(),
		"sidechannel":  h.cfg.SideChannelBackend,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":       "healthy",
		"open_matches": h.mgr.Len(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
	if h.hub != nil {
		body["websocket"] = h.hub.Metrics()
	}
	respond.WriteJSONObject(w, http.StatusOK, body)
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unavailable",
			"database":  "not configured",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns fixture and roster cache statistics.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{"enabled": false}
	if h.cache != nil {
		stats = h.cache.Stats()
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     stats,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
