// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-live/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// Statements lists every prepared statement by name. Exported so callers
// can see what a name resolves to.
var Statements = map[string]string{
	// Health
	"health_check": "SELECT 1",

	// Fixtures & rosters
	"fixture_by_id": `SELECT id, COALESCE(league_id, ''), home_team_id, away_team_id, start_time, COALESCE(venue, '')
		FROM fixtures WHERE id = $1`,
	"team_by_id": "SELECT id, name, COALESCE(coach, '') FROM teams WHERE id = $1",
	"roster_by_team": `SELECT id, jersey_name, jersey_number, starter
		FROM players WHERE team_id = $1 AND active ORDER BY starter DESC, jersey_number`,

	// Finalize
	"upsert_match_result": `INSERT INTO match_results
			(match_id, home_team_id, away_team_id, home_score, away_score, quarters_played, snapshot, finalized_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (match_id) DO UPDATE SET
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			quarters_played = EXCLUDED.quarters_played,
			snapshot = EXCLUDED.snapshot,
			finalized_at = NOW()`,
	"upsert_player_box_score": `INSERT INTO player_box_scores
			(match_id, team_id, player_id, points, fg2m, fg2a, fg3m, fg3a, ftm, fta,
			 reb, ast, stl, blk, tov, fouls, technicals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (match_id, player_id) DO UPDATE SET
			points = EXCLUDED.points,
			fg2m = EXCLUDED.fg2m, fg2a = EXCLUDED.fg2a,
			fg3m = EXCLUDED.fg3m, fg3a = EXCLUDED.fg3a,
			ftm = EXCLUDED.ftm, fta = EXCLUDED.fta,
			reb = EXCLUDED.reb, ast = EXCLUDED.ast, stl = EXCLUDED.stl,
			blk = EXCLUDED.blk, tov = EXCLUDED.tov,
			fouls = EXCLUDED.fouls, technicals = EXCLUDED.technicals`,
	"match_result_by_id": `SELECT match_id, home_score, away_score, quarters_played, finalized_at
		FROM match_results WHERE match_id = $1`,
}

// registerPreparedStatements registers all statements the API, listener and
// CLI use. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range Statements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
