package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/scoracle-live/internal/api/respond"
	"github.com/albapepper/scoracle-live/internal/cache"
	"github.com/albapepper/scoracle-live/internal/fixture"
)

// GetFixture returns a scheduled fixture.
// @Summary Get a fixture
// @Tags fixtures
// @Produce json
// @Param fixtureID path string true "Fixture ID"
// @Success 200 {object} fixture.Fixture
// @Success 304 "Not Modified"
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/fixtures/{fixtureID} [get]
func (h *Handler) GetFixture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fixtureID")
	h.serveCached(w, r, "resp:fixture:"+id, cache.TTLFixture, func(ctx context.Context) (any, error) {
		return h.fixtures.Fixture(ctx, id)
	})
}

// GetRoster returns a team and its players.
// @Summary Get a team roster
// @Tags fixtures
// @Produce json
// @Param teamID path string true "Team ID"
// @Success 200 {object} fixture.Roster
// @Success 304 "Not Modified"
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/teams/{teamID}/roster [get]
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "teamID")
	h.serveCached(w, r, "resp:roster:"+id, cache.TTLRoster, func(ctx context.Context) (any, error) {
		return h.fixtures.Roster(ctx, id)
	})
}

// serveCached answers from the response cache when it can, otherwise calls
// fetch and caches the encoded result for ttl.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, fetch func(context.Context) (any, error)) {
	if h.fixtures == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "FIXTURES_UNAVAILABLE", "no fixture source is configured")
		return
	}

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	v, err := fetch(r.Context())
	if err != nil {
		if errors.Is(err, fixture.ErrNotFound) {
			respond.WriteErrorDetail(w, http.StatusNotFound, "NOT_FOUND", "not found", err.Error())
			return
		}
		h.logger.Warn("Fixture lookup failed", "key", key, "error", err)
		respond.WriteErrorDetail(w, http.StatusBadGateway, "FIXTURE_LOOKUP_FAILED", "lookup failed", err.Error())
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		h.writeError(w, err)
		return
	}

	etag := h.cache.Set(key, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}
