package sidechannel_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-live/internal/sidechannel"
)

// These run against real servers and are skipped unless TEST_REDIS_URL or
// TEST_DATABASE_URL point at a disposable instance.

func TestRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	store, err := sidechannel.OpenRedis(ctx, url, time.Minute)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer store.Close()

	exercise(t, store)

	if err := store.Set(ctx, "scoring:ttl:history", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	defer store.Delete(ctx, "scoring:ttl:history")
	ttl, err := store.Client().TTL(ctx, "scoring:ttl:history").Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want within (0, 1m]", ttl)
	}
}

func TestOpenRedisRequiresURL(t *testing.T) {
	if _, err := sidechannel.OpenRedis(context.Background(), "", 0); err == nil {
		t.Error("expected an error without a URL")
	}
	if _, err := sidechannel.OpenRedis(context.Background(), "not a url", 0); err == nil {
		t.Error("expected a parse error")
	}
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store, err := sidechannel.NewPostgres(ctx, pool)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	exercise(t, store)

	if err := store.Set(ctx, "scoring:old:history", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PurgeOlderThan(ctx, -time.Minute); err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if _, err := store.Get(ctx, "scoring:old:history"); err == nil {
		t.Error("purge kept a row older than the cutoff")
	}
}
