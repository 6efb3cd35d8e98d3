package fixture

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSource reads fixtures and rosters through the pool's prepared
// statements.
type PGSource struct {
	pool *pgxpool.Pool
}

// NewPGSource creates a Postgres-backed Source.
func NewPGSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{pool: pool}
}

// Fixture returns a single fixture row.
func (s *PGSource) Fixture(ctx context.Context, id string) (Fixture, error) {
	var f Fixture
	err := s.pool.QueryRow(ctx, "fixture_by_id", id).Scan(
		&f.ID, &f.LeagueID, &f.HomeTeamID, &f.AwayTeamID, &f.StartTime, &f.Venue,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fixture{}, ErrNotFound
	}
	if err != nil {
		return Fixture{}, fmt.Errorf("get fixture %s: %w", id, err)
	}
	return f, nil
}

// Roster returns a team and its active players, starters first.
func (s *PGSource) Roster(ctx context.Context, teamID string) (Roster, error) {
	var r Roster
	err := s.pool.QueryRow(ctx, "team_by_id", teamID).Scan(&r.Team.ID, &r.Team.Name, &r.Team.Coach)
	if errors.Is(err, pgx.ErrNoRows) {
		return Roster{}, ErrNotFound
	}
	if err != nil {
		return Roster{}, fmt.Errorf("get team %s: %w", teamID, err)
	}

	rows, err := s.pool.Query(ctx, "roster_by_team", teamID)
	if err != nil {
		return Roster{}, fmt.Errorf("get roster %s: %w", teamID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.JerseyName, &p.JerseyNumber, &p.Starter); err != nil {
			return Roster{}, fmt.Errorf("scan player: %w", err)
		}
		r.Players = append(r.Players, p)
	}
	return r, rows.Err()
}
