package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/albapepper/scoracle-live/internal/api/respond"
	"github.com/albapepper/scoracle-live/internal/broadcast"
	"github.com/albapepper/scoracle-live/internal/cache"
	"github.com/albapepper/scoracle-live/internal/finalize"
	"github.com/albapepper/scoracle-live/internal/fixture"
	"github.com/albapepper/scoracle-live/internal/live"
	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/wire"
)

const maxBodyBytes = 1 << 20

// CreateMatchRequest starts a match from a scheduled fixture. When the body
// has no fixture_id it is read as a full snapshot instead.
type CreateMatchRequest struct {
	FixtureID string `json:"fixture_id,omitempty"`
	MatchID   string `json:"match_id,omitempty"`
}

// DispatchResponse is returned by every command endpoint.
type DispatchResponse struct {
	Changed  bool           `json:"changed"`
	Snapshot match.Snapshot `json:"snapshot"`
}

// StateResponse describes a match's undo/redo history.
type StateResponse struct {
	MatchID  string `json:"match_id"`
	CanUndo  bool   `json:"can_undo"`
	CanRedo  bool   `json:"can_redo"`
	Past     int    `json:"past"`
	Future   int    `json:"future"`
	Capacity int    `json:"capacity"`
}

// CreateMatch opens a new live match.
// @Summary Create a match
// @Description Starts scoring a match, either from a fixture (`{"fixture_id": "..."}`) or from a complete opening snapshot. A missing match_id is generated.
// @Tags matches
// @Accept json
// @Produce json
// @Param body body CreateMatchRequest true "Fixture reference or opening snapshot"
// @Success 201 {object} match.Snapshot
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/matches [post]
func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body could not be read")
		return
	}

	var req CreateMatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object", err.Error())
		return
	}

	var initial match.Snapshot
	if req.FixtureID != "" {
		if h.fixtures == nil {
			respond.WriteError(w, http.StatusServiceUnavailable, "FIXTURES_UNAVAILABLE", "no fixture source is configured")
			return
		}
		initial, err = fixture.Load(r.Context(), h.fixtures, req.FixtureID, h.cfg.Rules)
		if err != nil {
			if errors.Is(err, fixture.ErrNotFound) {
				respond.WriteErrorDetail(w, http.StatusNotFound, "FIXTURE_NOT_FOUND", "fixture not found", err.Error())
				return
			}
			h.logger.Warn("Fixture lookup failed", "fixture_id", req.FixtureID, "error", err)
			respond.WriteErrorDetail(w, http.StatusBadGateway, "FIXTURE_LOOKUP_FAILED", "fixture could not be loaded", err.Error())
			return
		}
		if req.MatchID != "" {
			initial.MatchID = req.MatchID
		}
	} else {
		if err := json.Unmarshal(body, &initial); err != nil {
			respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_SNAPSHOT", "body is not a match snapshot", err.Error())
			return
		}
		h.applyDefaults(&initial)
	}

	created, err := h.mgr.Create(r.Context(), initial)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, created)
}

// applyDefaults fills what a hand-written opening snapshot leaves out.
func (h *Handler) applyDefaults(s *match.Snapshot) {
	if s.MatchID == "" {
		s.MatchID = uuid.New().String()
	}
	rules := h.cfg.Rules
	if s.Quarters == 0 && rules.Quarters > 0 {
		s.Quarters = rules.Quarters
	}
	if s.QuarterSeconds == 0 && rules.QuarterSeconds > 0 {
		s.QuarterSeconds = rules.QuarterSeconds
	}
	if s.OvertimeSeconds == 0 && rules.OvertimeSeconds > 0 {
		s.OvertimeSeconds = rules.OvertimeSeconds
	}
	if s.CurrentQuarter == 0 && s.TimeSeconds == 0 {
		s.CurrentQuarter = 1
		s.TimeSeconds = s.QuarterSeconds
		if s.TimeSeconds == 0 {
			s.TimeSeconds = match.DefaultQuarterSeconds
		}
	}
}

// ListMatches lists the open matches.
// @Summary List open matches
// @Tags matches
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/matches [get]
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	list := h.mgr.List()
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"matches": list,
		"count":   len(list),
	})
}

// GetMatch returns the present snapshot of a match.
// @Summary Get match snapshot
// @Description Returns the present snapshot. Supports If-None-Match revalidation.
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} match.Snapshot
// @Success 304 "Not Modified"
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/matches/{matchID} [get]
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	snap, err := h.mgr.Snapshot(chi.URLParam(r, "matchID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		h.writeError(w, err)
		return
	}

	etag := cache.ComputeETag(data)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteLive(w, data, etag)
}

// GetMatchState reports the undo/redo history of a match.
// @Summary Get undo/redo state
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} StateResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/matches/{matchID}/state [get]
func (h *Handler) GetMatchState(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	s, err := h.mgr.Get(matchID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	hist := s.History()
	respond.WriteJSONObject(w, http.StatusOK, StateResponse{
		MatchID:  matchID,
		CanUndo:  hist.CanUndo(),
		CanRedo:  hist.CanRedo(),
		Past:     len(hist.Past),
		Future:   len(hist.Future),
		Capacity: hist.Capacity,
	})
}

// ResumeMatch reopens a match from its saved history.
// @Summary Resume a saved match
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} match.Snapshot
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/matches/{matchID}/resume [post]
func (h *Handler) ResumeMatch(w http.ResponseWriter, r *http.Request) {
	snap, err := h.mgr.Open(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, snap)
}

// DispatchCommand applies one command envelope to a match.
// @Summary Dispatch a command
// @Description Body is a command envelope, e.g. `{"type":"UpdatePlayerStat","payload":{"team_id":"home","player_id":"7","stat":"fg2m","delta":1}}`.
// @Tags commands
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param body body wire.Envelope true "Command envelope"
// @Success 200 {object} DispatchResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/matches/{matchID}/commands [post]
func (h *Handler) DispatchCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body could not be read")
		return
	}
	cmd, err := wire.Decode(body)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_COMMAND", "command could not be decoded", err.Error())
		return
	}
	h.dispatch(w, r, cmd)
}

// Undo steps a match back one change.
// @Summary Undo
// @Tags commands
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} DispatchResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/matches/{matchID}/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, match.Undo{})
}

// Redo re-applies the most recently undone change.
// @Summary Redo
// @Tags commands
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} DispatchResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/matches/{matchID}/redo [post]
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, match.Redo{})
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, cmd match.Command) {
	snap, changed, err := h.mgr.Dispatch(r.Context(), chi.URLParam(r, "matchID"), cmd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, DispatchResponse{Changed: changed, Snapshot: snap})
}

// FinalizeMatch records the match in the system of record and closes it.
// @Summary Finalize a match
// @Description Writes the final score and box scores, then closes the match and deletes its saved history. The clock must be stopped.
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} finalize.Result
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/matches/{matchID}/finalize [post]
func (h *Handler) FinalizeMatch(w http.ResponseWriter, r *http.Request) {
	if h.finalizer == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "FINALIZE_UNAVAILABLE", "no finalizer is configured")
		return
	}
	res, err := finalize.Match(r.Context(), h.mgr, h.finalizer, chi.URLParam(r, "matchID"), h.logger)
	if err != nil {
		if errors.Is(err, live.ErrMatchNotFound) || errors.Is(err, finalize.ErrMatchRunning) {
			h.writeError(w, err)
			return
		}
		respond.WriteErrorDetail(w, http.StatusBadGateway, "FINALIZE_FAILED", "match could not be finalized", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, res)
}

// CloseMatch stops scoring a match. With ?purge=true its saved history is
// deleted too.
// @Summary Close a match
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Param purge query bool false "Delete the saved history"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/matches/{matchID} [delete]
func (h *Handler) CloseMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge"))
	if err := h.mgr.Close(r.Context(), matchID, purge); err != nil {
		h.writeError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"match_id": matchID,
		"closed":   true,
		"purged":   purge,
	})
}

// LiveMatch upgrades to a WebSocket that streams every change of the match.
// With ?mode=watch the connection cannot send commands.
// @Summary Live match stream
// @Description WebSocket. Server sends `snapshot` messages; clients may send `command` and `heartbeat` messages.
// @Tags matches
// @Param matchID path string true "Match ID"
// @Param mode query string false "watch for a read-only connection" Enums(watch)
// @Success 101 "Switching Protocols"
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/matches/{matchID}/live [get]
func (h *Handler) LiveMatch(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "LIVE_UNAVAILABLE", "live streaming is not enabled")
		return
	}
	matchID := chi.URLParam(r, "matchID")
	snap, err := h.mgr.Snapshot(matchID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	first, err := broadcast.SnapshotMessage(snap)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var dispatch broadcast.CommandFunc
	if r.URL.Query().Get("mode") != "watch" {
		dispatch = func(ctx context.Context, id string, c match.Command) (bool, error) {
			_, changed, err := h.mgr.Dispatch(ctx, id, c)
			return changed, err
		}
	}
	if err := h.hub.Serve(h.base, w, r, matchID, first, dispatch); err != nil {
		// The upgrader has already answered the request.
		h.logger.Debug("WebSocket upgrade failed", "match_id", matchID, "error", err)
	}
}

// writeError maps manager and finalize errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, live.ErrMatchNotFound):
		respond.WriteError(w, http.StatusNotFound, "MATCH_NOT_FOUND", "match not found")
	case errors.Is(err, live.ErrMatchExists):
		respond.WriteErrorDetail(w, http.StatusConflict, "MATCH_EXISTS", "match already exists", err.Error())
	case errors.Is(err, live.ErrInvalidMatch):
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_MATCH", "match is invalid", err.Error())
	case errors.Is(err, finalize.ErrMatchRunning):
		respond.WriteError(w, http.StatusConflict, "MATCH_RUNNING", "stop the clock before finalizing")
	default:
		h.logger.Error("Request failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
