package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/albapepper/scoracle-live/internal/api/handler"
	"github.com/albapepper/scoracle-live/internal/cache"
	"github.com/albapepper/scoracle-live/internal/config"
	"github.com/albapepper/scoracle-live/internal/finalize"
	"github.com/albapepper/scoracle-live/internal/fixture"
	"github.com/albapepper/scoracle-live/internal/live"
	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/sidechannel"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const openingSnapshot = `{
	"match_id": "m1",
	"home_team": {"team_id": "home", "players": [{"player_id": "h1"}, {"player_id": "h2", "onBench": true}]},
	"away_team": {"team_id": "away", "players": [{"player_id": "a1"}]}
}`

type stubSource struct{}

func (stubSource) Fixture(_ context.Context, id string) (fixture.Fixture, error) {
	if id != "f1" {
		return fixture.Fixture{}, fixture.ErrNotFound
	}
	return fixture.Fixture{ID: "f1", HomeTeamID: "t1", AwayTeamID: "t2"}, nil
}

func (stubSource) Roster(_ context.Context, teamID string) (fixture.Roster, error) {
	r := fixture.Roster{Team: fixture.Team{ID: teamID, Name: "Team " + teamID}}
	for _, n := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		r.Players = append(r.Players, fixture.Player{ID: teamID + "-" + n, JerseyNumber: n})
	}
	return r, nil
}

type recordingFinalizer struct {
	mu   sync.Mutex
	seen []string
}

func (f *recordingFinalizer) Finalize(_ context.Context, snap match.Snapshot) (finalize.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, snap.MatchID)
	return finalize.Result{MatchID: snap.MatchID, HomeScore: snap.HomeTotalScore}, nil
}

type testServer struct {
	router http.Handler
	mgr    *live.Manager
	store  *sidechannel.Memory
}

func newTestServer(t *testing.T, mutate func(*handler.Deps)) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	store := sidechannel.NewMemory()
	mgr := live.NewManager(ctx, live.Options{Store: store, Logger: quiet})
	appCache := cache.New(true)
	t.Cleanup(func() {
		mgr.Shutdown(context.Background())
		appCache.Close()
		cancel()
	})

	cfg := &config.Config{
		CORSAllowOrigins:   []string{"*"},
		SideChannelBackend: sidechannel.BackendMemory,
		Rules:              match.DefaultRules(),
	}
	deps := handler.Deps{
		Base:     ctx,
		Manager:  mgr,
		Cache:    appCache,
		Fixtures: stubSource{},
		Config:   cfg,
		Logger:   quiet,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &testServer{router: NewRouter(deps, cfg), mgr: mgr, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, rec).Error.Code
}

func TestMatchLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/matches", openingSnapshot)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body)
	}
	created := decode[match.Snapshot](t, rec)
	if created.CurrentQuarter != 1 || created.TimeSeconds != match.DefaultQuarterSeconds {
		t.Errorf("opening clock = Q%d %ds", created.CurrentQuarter, created.TimeSeconds)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/matches/m1/commands",
		`{"type":"UpdatePlayerStat","payload":{"team_id":"home","player_id":"h1","stat":"fg2m","delta":1}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("command = %d %s", rec.Code, rec.Body)
	}
	resp := decode[handler.DispatchResponse](t, rec)
	if !resp.Changed || resp.Snapshot.HomeTotalScore != 2 {
		t.Errorf("after fg2m: changed=%v score=%d", resp.Changed, resp.Snapshot.HomeTotalScore)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/matches/m1", "")
	etag := rec.Header().Get("ETag")
	if rec.Code != http.StatusOK || etag == "" {
		t.Fatalf("get = %d etag=%q", rec.Code, etag)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if rec = s.do(t, http.MethodGet, "/api/v1/matches/m1", "", "If-None-Match", etag); rec.Code != http.StatusNotModified {
		t.Errorf("revalidate = %d, want 304", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/matches/m1/undo", "")
	if got := decode[handler.DispatchResponse](t, rec); got.Snapshot.HomeTotalScore != 0 {
		t.Errorf("after undo score = %d", got.Snapshot.HomeTotalScore)
	}
	if rec = s.do(t, http.MethodGet, "/api/v1/matches/m1", "", "If-None-Match", etag); rec.Code != http.StatusOK {
		t.Errorf("stale etag = %d, want 200", rec.Code)
	}

	state := decode[handler.StateResponse](t, s.do(t, http.MethodGet, "/api/v1/matches/m1/state", ""))
	if state.CanUndo || !state.CanRedo || state.Future != 1 {
		t.Errorf("state = %+v", state)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/matches/m1/redo", "")
	if got := decode[handler.DispatchResponse](t, rec); !got.Changed || got.Snapshot.HomeTotalScore != 2 {
		t.Errorf("redo = %+v", got)
	}

	list := decode[struct {
		Count int `json:"count"`
	}](t, s.do(t, http.MethodGet, "/api/v1/matches", ""))
	if list.Count != 1 {
		t.Errorf("count = %d", list.Count)
	}

	if rec = s.do(t, http.MethodDelete, "/api/v1/matches/m1", ""); rec.Code != http.StatusOK {
		t.Fatalf("close = %d", rec.Code)
	}
	if rec = s.do(t, http.MethodGet, "/api/v1/matches/m1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get closed = %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/matches/m1/resume", "")
	if got := decode[match.Snapshot](t, rec); rec.Code != http.StatusOK || got.HomeTotalScore != 2 {
		t.Errorf("resume = %d score=%d", rec.Code, got.HomeTotalScore)
	}

	if rec = s.do(t, http.MethodDelete, "/api/v1/matches/m1?purge=true", ""); rec.Code != http.StatusOK {
		t.Fatalf("purge = %d", rec.Code)
	}
	if rec = s.do(t, http.MethodPost, "/api/v1/matches/m1/resume", ""); rec.Code != http.StatusNotFound {
		t.Errorf("resume purged = %d", rec.Code)
	}
}

func TestCreateMatchErrors(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodPost, "/api/v1/matches", openingSnapshot); rec.Code != http.StatusCreated {
		t.Fatalf("seed create = %d", rec.Code)
	}

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"not json", `[`, http.StatusBadRequest, "INVALID_BODY"},
		{"duplicate", openingSnapshot, http.StatusConflict, "MATCH_EXISTS"},
		{"shared team", `{"home_team":{"team_id":"x"},"away_team":{"team_id":"x"}}`, http.StatusBadRequest, "INVALID_MATCH"},
		{"unknown fixture", `{"fixture_id":"nope"}`, http.StatusNotFound, "FIXTURE_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/matches", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body)
			}
			if got := errorCode(t, rec); got != tt.wantErr {
				t.Errorf("error code = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestCreateMatchGeneratesID(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/v1/matches",
		`{"home_team":{"team_id":"a"},"away_team":{"team_id":"b"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body)
	}
	if snap := decode[match.Snapshot](t, rec); len(snap.MatchID) != 36 {
		t.Errorf("match_id = %q, want a uuid", snap.MatchID)
	}
}

func TestCreateMatchFromFixture(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/v1/matches", `{"fixture_id":"f1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body)
	}
	snap := decode[match.Snapshot](t, rec)
	if snap.MatchID != "f1" || snap.HomeTeam.TeamID != "t1" {
		t.Errorf("snapshot = %s vs %s", snap.MatchID, snap.HomeTeam.TeamID)
	}
	onCourt := 0
	for _, p := range snap.HomeTeam.Players {
		if !p.OnBench {
			onCourt++
		}
	}
	if onCourt != fixture.StartersPerTeam {
		t.Errorf("on court = %d, want %d", onCourt, fixture.StartersPerTeam)
	}

	noSource := newTestServer(t, func(d *handler.Deps) { d.Fixtures = nil })
	if rec := noSource.do(t, http.MethodPost, "/api/v1/matches", `{"fixture_id":"f1"}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without source = %d, want 503", rec.Code)
	}
}

func TestFixtureEndpointsCache(t *testing.T) {
	s := newTestServer(t, nil)

	first := s.do(t, http.MethodGet, "/api/v1/fixtures/f1", "")
	if first.Code != http.StatusOK || first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first = %d X-Cache=%q", first.Code, first.Header().Get("X-Cache"))
	}
	if f := decode[fixture.Fixture](t, first); f.HomeTeamID != "t1" {
		t.Errorf("fixture = %+v", f)
	}
	if cc := first.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age=3600") {
		t.Errorf("Cache-Control = %q", cc)
	}

	second := s.do(t, http.MethodGet, "/api/v1/fixtures/f1", "")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second X-Cache = %q, want HIT", second.Header().Get("X-Cache"))
	}
	etag := second.Header().Get("ETag")
	if rec := s.do(t, http.MethodGet, "/api/v1/fixtures/f1", "", "If-None-Match", etag); rec.Code != http.StatusNotModified {
		t.Errorf("revalidate = %d, want 304", rec.Code)
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/fixtures/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown fixture = %d, want 404", rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/v1/teams/t2/roster", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("roster = %d %s", rec.Code, rec.Body)
	}
	if r := decode[fixture.Roster](t, rec); r.Team.ID != "t2" || len(r.Players) != 7 {
		t.Errorf("roster = %+v", r)
	}

	noSource := newTestServer(t, func(d *handler.Deps) { d.Fixtures = nil })
	if rec := noSource.do(t, http.MethodGet, "/api/v1/teams/t2/roster", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without source = %d, want 503", rec.Code)
	}
}

func TestDispatchErrors(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/api/v1/matches", openingSnapshot)

	if rec := s.do(t, http.MethodPost, "/api/v1/matches/m1/commands", `{"type":"Dunk"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown command = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/matches/m1/commands", `{"type":"SetTime"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing payload = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/matches/zz/undo", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown match = %d", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/api/v1/matches/m1/commands", `{"type":"AddTimeout","payload":{"team_id":"nobody"}}`)
	if got := decode[handler.DispatchResponse](t, rec); rec.Code != http.StatusOK || got.Changed {
		t.Errorf("unknown team = %d changed=%v, want a 200 no-op", rec.Code, got.Changed)
	}
}

func TestFinalizeMatch(t *testing.T) {
	fin := &recordingFinalizer{}
	s := newTestServer(t, func(d *handler.Deps) { d.Finalizer = fin })
	s.do(t, http.MethodPost, "/api/v1/matches", openingSnapshot)

	s.do(t, http.MethodPost, "/api/v1/matches/m1/commands", `{"type":"ToggleTimer"}`)
	if rec := s.do(t, http.MethodPost, "/api/v1/matches/m1/finalize", ""); rec.Code != http.StatusConflict {
		t.Errorf("finalize running = %d, want 409", rec.Code)
	}
	s.do(t, http.MethodPost, "/api/v1/matches/m1/commands", `{"type":"ToggleTimer"}`)

	rec := s.do(t, http.MethodPost, "/api/v1/matches/m1/finalize", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize = %d %s", rec.Code, rec.Body)
	}
	if res := decode[finalize.Result](t, rec); res.MatchID != "m1" {
		t.Errorf("result = %+v", res)
	}
	if s.mgr.Len() != 0 {
		t.Error("finalized match still open")
	}
	if _, err := s.store.Get(context.Background(), "scoring:m1:history"); !errors.Is(err, sidechannel.ErrNotFound) {
		t.Errorf("finalized history kept: %v", err)
	}

	noFin := newTestServer(t, nil)
	noFin.do(t, http.MethodPost, "/api/v1/matches", openingSnapshot)
	if rec := noFin.do(t, http.MethodPost, "/api/v1/matches/m1/finalize", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without finalizer = %d, want 503", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/health/db", http.StatusServiceUnavailable},
		{"/health/cache", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := s.do(t, http.MethodGet, tt.path, ""); rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestTimingMiddleware(t *testing.T) {
	h := TimingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.HasSuffix(rec.Header().Get("X-Process-Time"), "ms") {
		t.Errorf("X-Process-Time = %q", rec.Header().Get("X-Process-Time"))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusNoContent {
		t.Errorf("second client = %d, limits should be per IP", rec.Code)
	}
}

func TestDocsHiddenInProduction(t *testing.T) {
	dev := newTestServer(t, nil)
	if rec := dev.do(t, http.MethodGet, "/docs/index.html", ""); rec.Code != http.StatusOK {
		t.Errorf("dev docs = %d, want 200", rec.Code)
	}

	prod := newTestServer(t, func(d *handler.Deps) { d.Config.Environment = "production" })
	if rec := prod.do(t, http.MethodGet, "/docs/index.html", ""); rec.Code != http.StatusNotFound {
		t.Errorf("production docs = %d, want 404", rec.Code)
	}
}
