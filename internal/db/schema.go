package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-live/internal/config"
)

// Schema creates every table the prepared statements read and write. Safe
// to run repeatedly.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id    TEXT PRIMARY KEY,
		name  TEXT NOT NULL,
		coach TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id            TEXT PRIMARY KEY,
		team_id       TEXT NOT NULL REFERENCES teams(id),
		jersey_name   TEXT NOT NULL,
		jersey_number TEXT NOT NULL DEFAULT '',
		starter       BOOLEAN NOT NULL DEFAULT false,
		active        BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE INDEX IF NOT EXISTS idx_players_team ON players(team_id) WHERE active`,
	`CREATE TABLE IF NOT EXISTS fixtures (
		id           TEXT PRIMARY KEY,
		league_id    TEXT,
		home_team_id TEXT NOT NULL REFERENCES teams(id),
		away_team_id TEXT NOT NULL REFERENCES teams(id),
		start_time   TIMESTAMPTZ NOT NULL,
		venue        TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS match_results (
		match_id        TEXT PRIMARY KEY,
		home_team_id    TEXT NOT NULL,
		away_team_id    TEXT NOT NULL,
		home_score      INT NOT NULL,
		away_score      INT NOT NULL,
		quarters_played INT NOT NULL,
		snapshot        JSONB NOT NULL,
		finalized_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS player_box_scores (
		match_id   TEXT NOT NULL REFERENCES match_results(match_id) ON DELETE CASCADE,
		team_id    TEXT NOT NULL,
		player_id  TEXT NOT NULL,
		points     INT NOT NULL,
		fg2m       INT NOT NULL, fg2a INT NOT NULL,
		fg3m       INT NOT NULL, fg3a INT NOT NULL,
		ftm        INT NOT NULL, fta  INT NOT NULL,
		reb        INT NOT NULL, ast  INT NOT NULL,
		stl        INT NOT NULL, blk  INT NOT NULL,
		tov        INT NOT NULL,
		fouls      INT NOT NULL,
		technicals INT NOT NULL,
		PRIMARY KEY (match_id, player_id)
	)`,
	`CREATE TABLE IF NOT EXISTS scoring_kv (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Tables lists every table Schema creates.
var Tables = []string{
	config.TeamsTable,
	config.PlayersTable,
	config.FixturesTable,
	config.MatchResultsTable,
	config.PlayerBoxScoreTable,
	config.KVTable,
}

// Migrate applies Schema and checks every table in Tables exists.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	for i, stmt := range Schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	for _, table := range Tables {
		var exists bool
		if err := pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("table %s missing after migration", table)
		}
	}
	logger.Info("Schema up to date", "statements", len(Schema), "tables", len(Tables))
	return nil
}
