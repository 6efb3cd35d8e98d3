package finalize_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/albapepper/scoracle-live/internal/config"
	"github.com/albapepper/scoracle-live/internal/db"
	"github.com/albapepper/scoracle-live/internal/finalize"
)

func TestPGFinalizerLookup(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.New(ctx, &config.Config{DatabaseURL: url, DBPoolMinConns: 1, DBPoolMaxConns: 2, DBPoolMaxLife: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool.Pool, quiet); err != nil {
		t.Fatal(err)
	}

	snap := finalSnapshot()
	snap.MatchID = "lookup-" + time.Now().Format("150405.000000")
	pg := finalize.NewPGFinalizer(pool.Pool)

	if _, err := pg.Lookup(ctx, snap.MatchID); !errors.Is(err, finalize.ErrNotRecorded) {
		t.Fatalf("before finalize err = %v, want ErrNotRecorded", err)
	}
	res, err := pg.Finalize(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.PlayersRecorded != 3 {
		t.Errorf("players recorded = %d, want 3", res.PlayersRecorded)
	}

	rec, err := pg.Lookup(ctx, snap.MatchID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.HomeScore != snap.HomeTotalScore || rec.AwayScore != snap.AwayTotalScore || rec.FinalizedAt.IsZero() {
		t.Errorf("recorded = %+v", rec)
	}
}
