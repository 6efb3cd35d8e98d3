// Package finalize records a finished match in the system of record: the
// match_results and player_box_scores tables, and optionally the remote
// league API. Once a match is finalized its live session and side-channel
// document are no longer needed.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/scoracle-live/internal/live"
	"github.com/albapepper/scoracle-live/internal/match"
)

// Result tracks the outcome of finalizing one match.
type Result struct {
	MatchID         string        `json:"match_id"`
	HomeScore       int           `json:"home_score"`
	AwayScore       int           `json:"away_score"`
	QuartersPlayed  int           `json:"quarters_played"`
	PlayersRecorded int           `json:"players_recorded"`
	Submitted       bool          `json:"submitted"`
	Errors          []string      `json:"errors,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// Add merges another Result into this one.
func (r *Result) Add(other Result) {
	if r.MatchID == "" {
		r.MatchID = other.MatchID
		r.HomeScore = other.HomeScore
		r.AwayScore = other.AwayScore
		r.QuartersPlayed = other.QuartersPlayed
	}
	r.PlayersRecorded += other.PlayersRecorded
	r.Submitted = r.Submitted || other.Submitted
	r.Errors = append(r.Errors, other.Errors...)
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the finalize operation.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"match=%s score=%d-%d quarters=%d players=%d submitted=%v errors=%d dur=%s",
		r.MatchID, r.HomeScore, r.AwayScore, r.QuartersPlayed,
		r.PlayersRecorded, r.Submitted, len(r.Errors), r.Duration.Round(time.Millisecond),
	)
}

func newResult(snap match.Snapshot) Result {
	return Result{
		MatchID:        snap.MatchID,
		HomeScore:      snap.HomeTotalScore,
		AwayScore:      snap.AwayTotalScore,
		QuartersPlayed: snap.CurrentQuarter,
	}
}

// Finalizer records a final snapshot somewhere durable.
type Finalizer interface {
	Finalize(ctx context.Context, snap match.Snapshot) (Result, error)
}

// ErrMatchRunning is returned when the match clock is still running.
var ErrMatchRunning = errors.New("finalize: match clock is running")

// --------------------------------------------------------------------------
// Remote submission
// --------------------------------------------------------------------------

// Submitter posts a final snapshot to a remote service.
type Submitter interface {
	SubmitResult(ctx context.Context, snap match.Snapshot) error
}

// Remote finalizes by submitting to a Submitter.
type Remote struct {
	Submitter Submitter
}

func (r Remote) Finalize(ctx context.Context, snap match.Snapshot) (Result, error) {
	res := newResult(snap)
	if err := r.Submitter.SubmitResult(ctx, snap); err != nil {
		return res, err
	}
	res.Submitted = true
	return res, nil
}

// --------------------------------------------------------------------------
// Chains
// --------------------------------------------------------------------------

// Chain runs finalizers in order and stops at the first failure.
type Chain []Finalizer

func (c Chain) Finalize(ctx context.Context, snap match.Snapshot) (Result, error) {
	total := newResult(snap)
	for _, f := range c {
		res, err := f.Finalize(ctx, snap)
		total.Add(res)
		if err != nil {
			total.AddErrorf("%v", err)
			return total, err
		}
	}
	return total, nil
}

// --------------------------------------------------------------------------
// Live matches
// --------------------------------------------------------------------------

// Match finalizes an open match, then closes it and purges its saved
// history. A match whose clock is running is refused. On failure the match
// stays open.
func Match(ctx context.Context, m *live.Manager, f Finalizer, matchID string, logger *slog.Logger) (Result, error) {
	start := time.Now()
	snap, err := m.Snapshot(matchID)
	if err != nil {
		return Result{}, err
	}
	if snap.TimerRunning {
		return newResult(snap), ErrMatchRunning
	}

	res, err := f.Finalize(ctx, snap)
	res.Duration = time.Since(start)
	if err != nil {
		logger.Warn("Finalize failed", "match_id", matchID, "error", err)
		return res, fmt.Errorf("finalize %s: %w", matchID, err)
	}

	if err := m.Close(ctx, matchID, true); err != nil {
		logger.Warn("Finalized match could not be purged", "match_id", matchID, "error", err)
		res.AddErrorf("purge: %v", err)
	}
	logger.Info("Match finalized", "summary", res.Summary())
	return res, nil
}
