// Package fixture turns a scheduled game and the two team rosters into the
// opening snapshot of a live match. Fixtures and rosters come from Postgres
// or from the remote league API through a Source.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/albapepper/scoracle-live/internal/match"
)

// ErrNotFound is returned when a fixture or team does not exist.
var ErrNotFound = errors.New("fixture: not found")

// StartersPerTeam is how many players begin on the court.
const StartersPerTeam = 5

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Fixture is one scheduled game.
type Fixture struct {
	ID         string    `json:"id" yaml:"id"`
	LeagueID   string    `json:"league_id,omitempty" yaml:"league_id,omitempty"`
	HomeTeamID string    `json:"home_team_id" yaml:"home_team_id"`
	AwayTeamID string    `json:"away_team_id" yaml:"away_team_id"`
	StartTime  time.Time `json:"start_time" yaml:"start_time"`
	Venue      string    `json:"venue,omitempty" yaml:"venue,omitempty"`
}

// Team is a team's identity.
type Team struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Coach string `json:"coach,omitempty" yaml:"coach,omitempty"`
}

// Player is one roster entry.
type Player struct {
	ID           string `json:"id" yaml:"id"`
	JerseyName   string `json:"jersey_name" yaml:"jersey_name"`
	JerseyNumber string `json:"jersey_number" yaml:"jersey_number"`
	Starter      bool   `json:"starter,omitempty" yaml:"starter,omitempty"`
}

// Roster is a team and its active players.
type Roster struct {
	Team    Team     `json:"team" yaml:"team"`
	Players []Player `json:"players" yaml:"players"`
}

// Source looks up fixtures and rosters.
type Source interface {
	Fixture(ctx context.Context, id string) (Fixture, error)
	Roster(ctx context.Context, teamID string) (Roster, error)
}

// --------------------------------------------------------------------------
// Snapshot construction
// --------------------------------------------------------------------------

// Build creates the opening snapshot for f. Players flagged as starters
// take the court; when a roster flags none, its first StartersPerTeam
// players do.
func Build(f Fixture, home, away Roster, rules match.Rules) (match.Snapshot, error) {
	if f.ID == "" {
		return match.Snapshot{}, errors.New("fixture has no id")
	}
	if home.Team.ID != f.HomeTeamID {
		return match.Snapshot{}, fmt.Errorf("home roster is for %q, fixture expects %q", home.Team.ID, f.HomeTeamID)
	}
	if away.Team.ID != f.AwayTeamID {
		return match.Snapshot{}, fmt.Errorf("away roster is for %q, fixture expects %q", away.Team.ID, f.AwayTeamID)
	}
	if f.HomeTeamID == f.AwayTeamID {
		return match.Snapshot{}, fmt.Errorf("fixture %s has the same team on both sides", f.ID)
	}
	return match.NewSnapshot(f.ID, teamState(home), teamState(away), rules), nil
}

func teamState(r Roster) match.TeamState {
	hasStarters := false
	for _, p := range r.Players {
		if p.Starter {
			hasStarters = true
			break
		}
	}

	players := make([]match.PlayerState, 0, len(r.Players))
	seen := make(map[string]bool, len(r.Players))
	for i, p := range r.Players {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		onCourt := p.Starter
		if !hasStarters {
			onCourt = i < StartersPerTeam
		}
		players = append(players, match.PlayerState{
			PlayerID:     p.ID,
			JerseyName:   strings.TrimSpace(p.JerseyName),
			JerseyNumber: strings.TrimSpace(p.JerseyNumber),
			OnBench:      !onCourt,
		})
	}
	return match.TeamState{
		TeamID:  r.Team.ID,
		Name:    r.Team.Name,
		Coach:   r.Team.Coach,
		Players: players,
	}
}

// Load fetches the fixture and both rosters from src and builds the
// opening snapshot. The rosters are fetched concurrently.
func Load(ctx context.Context, src Source, fixtureID string, rules match.Rules) (match.Snapshot, error) {
	f, err := src.Fixture(ctx, fixtureID)
	if err != nil {
		return match.Snapshot{}, fmt.Errorf("fixture %s: %w", fixtureID, err)
	}

	var (
		wg               sync.WaitGroup
		home, away       Roster
		homeErr, awayErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		home, homeErr = src.Roster(ctx, f.HomeTeamID)
	}()
	go func() {
		defer wg.Done()
		away, awayErr = src.Roster(ctx, f.AwayTeamID)
	}()
	wg.Wait()

	if homeErr != nil {
		return match.Snapshot{}, fmt.Errorf("home roster %s: %w", f.HomeTeamID, homeErr)
	}
	if awayErr != nil {
		return match.Snapshot{}, fmt.Errorf("away roster %s: %w", f.AwayTeamID, awayErr)
	}
	return Build(f, home, away, rules)
}
