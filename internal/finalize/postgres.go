package finalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-live/internal/match"
)

// BoxScore is one player's final line.
type BoxScore struct {
	TeamID     string
	PlayerID   string
	Points     int
	Summary    match.Summary
	Fouls      int
	Technicals int
}

// BoxScores lists every player of both teams, home first.
func BoxScores(snap match.Snapshot) []BoxScore {
	out := make([]BoxScore, 0, len(snap.HomeTeam.Players)+len(snap.AwayTeam.Players))
	for _, team := range []match.TeamState{snap.HomeTeam, snap.AwayTeam} {
		for _, p := range team.Players {
			out = append(out, BoxScore{
				TeamID:     team.TeamID,
				PlayerID:   p.PlayerID,
				Points:     p.TotalScore,
				Summary:    p.Summary,
				Fouls:      p.P,
				Technicals: p.T,
			})
		}
	}
	return out
}

// PGFinalizer writes the result and every box score in one transaction.
// Rerunning it for the same match overwrites the earlier rows.
type PGFinalizer struct {
	pool *pgxpool.Pool
}

// NewPGFinalizer creates a Postgres finalizer.
func NewPGFinalizer(pool *pgxpool.Pool) *PGFinalizer {
	return &PGFinalizer{pool: pool}
}

func (f *PGFinalizer) Finalize(ctx context.Context, snap match.Snapshot) (Result, error) {
	res := newResult(snap)

	doc, err := json.Marshal(snap)
	if err != nil {
		return res, fmt.Errorf("encode snapshot: %w", err)
	}

	err = pgx.BeginFunc(ctx, f.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "upsert_match_result",
			snap.MatchID, snap.HomeTeam.TeamID, snap.AwayTeam.TeamID,
			snap.HomeTotalScore, snap.AwayTotalScore, snap.CurrentQuarter, doc,
		); err != nil {
			return fmt.Errorf("upsert match result: %w", err)
		}

		batch := &pgx.Batch{}
		lines := BoxScores(snap)
		for _, b := range lines {
			s := b.Summary
			batch.Queue("upsert_player_box_score",
				snap.MatchID, b.TeamID, b.PlayerID, b.Points,
				s.FG2M, s.FG2A, s.FG3M, s.FG3A, s.FTM, s.FTA,
				s.REB, s.AST, s.STL, s.BLK, s.TOV, b.Fouls, b.Technicals,
			)
		}
		results := tx.SendBatch(ctx, batch)
		for _, b := range lines {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("upsert box score %s: %w", b.PlayerID, err)
			}
		}
		if err := results.Close(); err != nil {
			return err
		}
		res.PlayersRecorded = len(lines)
		return nil
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

// ErrNotRecorded is returned by Lookup for a match with no stored result.
var ErrNotRecorded = errors.New("match result not recorded")

// Recorded is a result already stored in match_results.
type Recorded struct {
	MatchID        string    `json:"match_id"`
	HomeScore      int       `json:"home_score"`
	AwayScore      int       `json:"away_score"`
	QuartersPlayed int       `json:"quarters_played"`
	FinalizedAt    time.Time `json:"finalized_at"`
}

// Lookup returns the stored result of a match.
func (f *PGFinalizer) Lookup(ctx context.Context, matchID string) (Recorded, error) {
	var r Recorded
	err := f.pool.QueryRow(ctx, "match_result_by_id", matchID).
		Scan(&r.MatchID, &r.HomeScore, &r.AwayScore, &r.QuartersPlayed, &r.FinalizedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recorded{}, ErrNotRecorded
	}
	if err != nil {
		return Recorded{}, fmt.Errorf("lookup %s: %w", matchID, err)
	}
	return r, nil
}
