// Package sidechannel provides the durable key-value stores a scoring
// session writes its history document to. They exist for crash and reload
// continuity only; the system of record is the finalized match.
package sidechannel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("sidechannel: key not found")

// Store is a durable key-value side-channel.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Purger is implemented by stores that can drop stale documents
// themselves. Redis expires keys on its own.
type Purger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// DefaultRedisTTL keeps an abandoned session around for a day.
const DefaultRedisTTL = 24 * time.Hour

// Options selects and configures a backend.
type Options struct {
	Backend    string
	SQLitePath string
	RedisURL   string
	RedisTTL   time.Duration
	Pool       *pgxpool.Pool
}

// Open creates the configured store.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		s, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		r, err := OpenRedis(ctx, opts.RedisURL, opts.RedisTTL)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendPostgres:
		if opts.Pool == nil {
			return nil, fmt.Errorf("postgres side-channel requires a database pool")
		}
		p, err := NewPostgres(ctx, opts.Pool)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown side-channel backend %q", opts.Backend)
}
