package finalize_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/albapepper/scoracle-live/internal/finalize"
	"github.com/albapepper/scoracle-live/internal/live"
	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/session"
	"github.com/albapepper/scoracle-live/internal/sidechannel"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func finalSnapshot() match.Snapshot {
	home := match.TeamState{TeamID: "home", Players: []match.PlayerState{{PlayerID: "h1"}, {PlayerID: "h2", OnBench: true}}}
	away := match.TeamState{TeamID: "away", Players: []match.PlayerState{{PlayerID: "a1"}}}
	s := match.NewSnapshot("m1", home, away, match.DefaultRules())
	s, _ = match.Apply(s, match.UpdatePlayerStat{TeamID: "home", PlayerID: "h1", Stat: match.StatFG3M, Delta: 1})
	s, _ = match.Apply(s, match.UpdatePlayerStat{TeamID: "home", PlayerID: "h1", Stat: match.StatPersonal, Delta: 1})
	s, _ = match.Apply(s, match.UpdatePlayerStat{TeamID: "away", PlayerID: "a1", Stat: match.StatFTM, Delta: 1})
	return s
}

type fakeFinalizer struct {
	err   error
	calls int
	seen  match.Snapshot
}

func (f *fakeFinalizer) Finalize(_ context.Context, snap match.Snapshot) (finalize.Result, error) {
	f.calls++
	f.seen = snap
	return finalize.Result{MatchID: snap.MatchID, PlayersRecorded: 3}, f.err
}

type fakeSubmitter struct{ err error }

func (s fakeSubmitter) SubmitResult(context.Context, match.Snapshot) error { return s.err }

func TestBoxScores(t *testing.T) {
	lines := finalize.BoxScores(finalSnapshot())
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	h1 := lines[0]
	if h1.TeamID != "home" || h1.PlayerID != "h1" || h1.Points != 3 || h1.Fouls != 1 || h1.Summary.FG3M != 1 {
		t.Errorf("h1 = %+v", h1)
	}
	if a1 := lines[2]; a1.TeamID != "away" || a1.Points != 1 {
		t.Errorf("a1 = %+v", a1)
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	snap := finalSnapshot()

	db := &fakeFinalizer{}
	res, err := finalize.Chain{db, finalize.Remote{Submitter: fakeSubmitter{}}}.Finalize(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.HomeScore != 3 || res.AwayScore != 1 || res.PlayersRecorded != 3 || !res.Submitted {
		t.Errorf("result = %+v", res)
	}

	boom := errors.New("league down")
	after := &fakeFinalizer{}
	res, err = finalize.Chain{finalize.Remote{Submitter: fakeSubmitter{err: boom}}, after}.Finalize(ctx, snap)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if after.calls != 0 {
		t.Error("chain continued past a failure")
	}
	if len(res.Errors) != 1 || res.Submitted {
		t.Errorf("result = %+v", res)
	}
}

func newManager(t *testing.T, store sidechannel.Store) *live.Manager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	m := live.NewManager(ctx, live.Options{Store: store, Logger: quiet})
	t.Cleanup(func() {
		m.Shutdown(context.Background())
		cancel()
	})
	return m
}

func TestMatch(t *testing.T) {
	ctx := context.Background()
	store := sidechannel.NewMemory()
	m := newManager(t, store)
	if _, err := m.Create(ctx, finalSnapshot()); err != nil {
		t.Fatal(err)
	}
	m.Dispatch(ctx, "m1", match.SetTime{Seconds: 0})

	f := &fakeFinalizer{}
	res, err := finalize.Match(ctx, m, f, "m1", quiet)
	if err != nil {
		t.Fatal(err)
	}
	if res.MatchID != "m1" || f.seen.HomeTotalScore != 3 {
		t.Errorf("result = %+v, finalized snapshot score %d", res, f.seen.HomeTotalScore)
	}
	if m.Len() != 0 {
		t.Error("finalized match still open")
	}
	if _, err := store.Get(ctx, session.Key("m1")); !errors.Is(err, sidechannel.ErrNotFound) {
		t.Errorf("side-channel not purged: %v", err)
	}

	if _, err := finalize.Match(ctx, m, f, "m1", quiet); !errors.Is(err, live.ErrMatchNotFound) {
		t.Errorf("second finalize err = %v", err)
	}
}

func TestMatchRefusesRunningClockAndKeepsFailures(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, sidechannel.NewMemory())
	if _, err := m.Create(ctx, finalSnapshot()); err != nil {
		t.Fatal(err)
	}

	m.Dispatch(ctx, "m1", match.ToggleTimer{})
	f := &fakeFinalizer{}
	if _, err := finalize.Match(ctx, m, f, "m1", quiet); !errors.Is(err, finalize.ErrMatchRunning) {
		t.Errorf("err = %v, want ErrMatchRunning", err)
	}
	if f.calls != 0 {
		t.Error("finalizer ran on a live clock")
	}
	m.Dispatch(ctx, "m1", match.ToggleTimer{})

	failing := &fakeFinalizer{err: errors.New("db down")}
	if _, err := finalize.Match(ctx, m, failing, "m1", quiet); err == nil {
		t.Fatal("expected failure")
	}
	if m.Len() != 1 {
		t.Error("failed finalize should leave the match open")
	}
}
