package league

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/scoracle-live/internal/fixture"
	"github.com/albapepper/scoracle-live/internal/match"
)

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

type gameRaw struct {
	ID          int     `json:"id"`
	League      string  `json:"league"`
	Date        string  `json:"date"`
	Arena       string  `json:"arena"`
	HomeTeam    teamRaw `json:"home_team"`
	VisitorTeam teamRaw `json:"visitor_team"`
}

type teamRaw struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Coach    string `json:"head_coach"`
}

// Fixture fetches one scheduled game.
func (c *Client) Fixture(ctx context.Context, id string) (fixture.Fixture, error) {
	resp, err := c.get(ctx, "/games/"+url.PathEscape(id), nil)
	if err != nil {
		return fixture.Fixture{}, wrapNotFound(fmt.Errorf("fetch game %s: %w", id, err))
	}

	var raw gameRaw
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		return fixture.Fixture{}, fmt.Errorf("decode game %s: %w", id, err)
	}
	return normalizeGame(raw)
}

func normalizeGame(raw gameRaw) (fixture.Fixture, error) {
	start, err := parseDate(raw.Date)
	if err != nil {
		return fixture.Fixture{}, fmt.Errorf("game %d: %w", raw.ID, err)
	}
	return fixture.Fixture{
		ID:         strconv.Itoa(raw.ID),
		LeagueID:   raw.League,
		HomeTeamID: strconv.Itoa(raw.HomeTeam.ID),
		AwayTeamID: strconv.Itoa(raw.VisitorTeam.ID),
		StartTime:  start,
		Venue:      raw.Arena,
	}, nil
}

// parseDate accepts full timestamps and bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// --------------------------------------------------------------------------
// Rosters (cursor-paginated)
// --------------------------------------------------------------------------

type playerRaw struct {
	ID           int    `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	JerseyNumber string `json:"jersey_number"`
	Starter      bool   `json:"starter"`
}

// Roster fetches a team and every active player on it.
func (c *Client) Roster(ctx context.Context, teamID string) (fixture.Roster, error) {
	resp, err := c.get(ctx, "/teams/"+url.PathEscape(teamID), nil)
	if err != nil {
		return fixture.Roster{}, wrapNotFound(fmt.Errorf("fetch team %s: %w", teamID, err))
	}
	var team teamRaw
	if err := json.Unmarshal(resp.Data, &team); err != nil {
		return fixture.Roster{}, fmt.Errorf("decode team %s: %w", teamID, err)
	}

	roster := fixture.Roster{Team: fixture.Team{
		ID:    strconv.Itoa(team.ID),
		Name:  firstNonEmpty(team.FullName, team.Name),
		Coach: team.Coach,
	}}

	params := url.Values{}
	params.Set("team_ids[]", teamID)
	params.Set("per_page", "100")

	for {
		resp, err := c.get(ctx, "/players/active", params)
		if err != nil {
			return fixture.Roster{}, fmt.Errorf("fetch roster %s: %w", teamID, err)
		}
		var page []playerRaw
		if err := json.Unmarshal(resp.Data, &page); err != nil {
			return fixture.Roster{}, fmt.Errorf("decode roster %s: %w", teamID, err)
		}
		for _, p := range page {
			roster.Players = append(roster.Players, fixture.Player{
				ID:           strconv.Itoa(p.ID),
				JerseyName:   jerseyName(p),
				JerseyNumber: p.JerseyNumber,
				Starter:      p.Starter,
			})
		}

		if resp.Meta.NextCursor == nil {
			break
		}
		params.Set("cursor", strconv.Itoa(*resp.Meta.NextCursor))
	}

	c.logger.Info("Fetched roster", "team_id", teamID, "players", len(roster.Players))
	return roster, nil
}

// jerseyName is what is printed on the back: the last name, or the first
// name for single-name players.
func jerseyName(p playerRaw) string {
	return strings.ToUpper(firstNonEmpty(p.LastName, p.FirstName))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func wrapNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", fixture.ErrNotFound, err)
	}
	return err
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

// ResultPayload is the body posted for a finished game.
type ResultPayload struct {
	GameID         string           `json:"game_id"`
	HomeTeamID     string           `json:"home_team_id"`
	AwayTeamID     string           `json:"away_team_id"`
	HomeScore      int              `json:"home_score"`
	AwayScore      int              `json:"away_score"`
	QuartersPlayed int              `json:"quarters_played"`
	BoxScore       []PlayerBoxScore `json:"box_score"`
}

// PlayerBoxScore is one player's line.
type PlayerBoxScore struct {
	TeamID   string `json:"team_id"`
	PlayerID string `json:"player_id"`
	Points   int    `json:"pts"`
	FGM      int    `json:"fgm"`
	FGA      int    `json:"fga"`
	FG3M     int    `json:"fg3m"`
	FG3A     int    `json:"fg3a"`
	FTM      int    `json:"ftm"`
	FTA      int    `json:"fta"`
	REB      int    `json:"reb"`
	AST      int    `json:"ast"`
	STL      int    `json:"stl"`
	BLK      int    `json:"blk"`
	TOV      int    `json:"turnover"`
	PF       int    `json:"pf"`
}

// NewResultPayload converts a final snapshot to the API's result shape.
// Field goals made and attempted include threes.
func NewResultPayload(snap match.Snapshot) ResultPayload {
	out := ResultPayload{
		GameID:         snap.MatchID,
		HomeTeamID:     snap.HomeTeam.TeamID,
		AwayTeamID:     snap.AwayTeam.TeamID,
		HomeScore:      snap.HomeTotalScore,
		AwayScore:      snap.AwayTotalScore,
		QuartersPlayed: snap.CurrentQuarter,
	}
	for _, team := range []match.TeamState{snap.HomeTeam, snap.AwayTeam} {
		for _, p := range team.Players {
			s := p.Summary
			out.BoxScore = append(out.BoxScore, PlayerBoxScore{
				TeamID:   team.TeamID,
				PlayerID: p.PlayerID,
				Points:   p.TotalScore,
				FGM:      s.FG2M + s.FG3M,
				FGA:      s.FG2A + s.FG3A,
				FG3M:     s.FG3M,
				FG3A:     s.FG3A,
				FTM:      s.FTM,
				FTA:      s.FTA,
				REB:      s.REB,
				AST:      s.AST,
				STL:      s.STL,
				BLK:      s.BLK,
				TOV:      s.TOV,
				PF:       p.P,
			})
		}
	}
	return out
}

// SubmitResult posts a final snapshot.
func (c *Client) SubmitResult(ctx context.Context, snap match.Snapshot) error {
	path := "/games/" + url.PathEscape(snap.MatchID) + "/result"
	if err := c.post(ctx, path, NewResultPayload(snap)); err != nil {
		return fmt.Errorf("submit result %s: %w", snap.MatchID, err)
	}
	c.logger.Info("Submitted result", "match_id", snap.MatchID,
		"home", snap.HomeTotalScore, "away", snap.AwayTotalScore)
	return nil
}
