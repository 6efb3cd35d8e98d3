package sidechannel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps documents in the scoring_kv table. Used when the host is
// a server and several API replicas share one database.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres ensures the table exists.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS scoring_kv (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return nil, fmt.Errorf("create scoring_kv: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, "SELECT value FROM scoring_kv WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %q: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO scoring_kv (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("postgres set %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM scoring_kv WHERE key = $1", key); err != nil {
		return fmt.Errorf("postgres delete %q: %w", key, err)
	}
	return nil
}

// PurgeOlderThan removes documents not written within age.
func (p *Postgres) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		"DELETE FROM scoring_kv WHERE updated_at < NOW() - make_interval(secs => $1)",
		age.Seconds())
	if err != nil {
		return 0, fmt.Errorf("purge scoring_kv: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close is a no-op; the pool belongs to the caller.
func (p *Postgres) Close() error { return nil }
