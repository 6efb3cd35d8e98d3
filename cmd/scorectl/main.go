// Command scorectl is the Scoracle Live operations CLI.
//
// Usage:
//
//	scorectl replay --snapshot opening.yaml --commands game.jsonl
//	scorectl inspect --match 8f3c...
//	scorectl finalize --match 8f3c...
//	scorectl migrate
//	scorectl purge --match 8f3c...
//	scorectl purge --older-than 168h
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/scoracle-live/internal/config"
	"github.com/albapepper/scoracle-live/internal/db"
	"github.com/albapepper/scoracle-live/internal/finalize"
	"github.com/albapepper/scoracle-live/internal/history"
	"github.com/albapepper/scoracle-live/internal/live"
	"github.com/albapepper/scoracle-live/internal/maintenance"
	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/provider/league"
	"github.com/albapepper/scoracle-live/internal/replay"
	"github.com/albapepper/scoracle-live/internal/session"
	"github.com/albapepper/scoracle-live/internal/sidechannel"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "scorectl",
		Short: "Scoracle Live operations CLI",
	}

	root.AddCommand(replayCmd())
	root.AddCommand(inspectCmd())
	root.AddCommand(finalizeCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(purgeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// replay command
// --------------------------------------------------------------------------

func replayCmd() *cobra.Command {
	var (
		snapshotPath string
		commandsPath string
		capacity     int
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply a command log to an opening snapshot offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapshotPath == "" || commandsPath == "" {
				return fmt.Errorf("--snapshot and --commands are required")
			}
			initial, err := replay.LoadSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			f, err := os.Open(commandsPath)
			if err != nil {
				return fmt.Errorf("open commands: %w", err)
			}
			defer f.Close()
			cmds, err := replay.ReadCommands(f)
			if err != nil {
				return err
			}

			start := time.Now()
			res := replay.Run(initial, cmds, capacity)
			logger.Info("Replay finished",
				"match_id", res.Final.MatchID,
				"applied", res.Applied,
				"changed", res.Changed,
				"past", res.Past,
				"future", res.Future,
				"duration", time.Since(start).Round(time.Microsecond))
			return printJSON(cmd, res.Final)
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Opening snapshot (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&commandsPath, "commands", "", "Command envelopes, one JSON object per line")
	cmd.Flags().IntVar(&capacity, "capacity", history.DefaultCapacity, "Undo history bound (0 = unbounded)")
	return cmd
}

// --------------------------------------------------------------------------
// inspect command
// --------------------------------------------------------------------------

// inspection is what `inspect` prints for a saved match.
type inspection struct {
	MatchID      string          `json:"match_id"`
	Key          string          `json:"key"`
	Bytes        int             `json:"bytes"`
	Quarter      int             `json:"current_quarter"`
	Clock        string          `json:"clock"`
	TimerRunning bool            `json:"timer_running"`
	HomeScore    int             `json:"home_total_score"`
	AwayScore    int             `json:"away_total_score"`
	Past         int             `json:"past"`
	Future       int             `json:"future"`
	Present      *match.Snapshot `json:"present,omitempty"`

	// Finalized is set when Postgres already holds a result for the match.
	Finalized *finalize.Recorded `json:"finalized,omitempty"`
}

func inspectCmd() *cobra.Command {
	var (
		matchID string
		full    bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the saved history of a match",
		RunE: func(cmd *cobra.Command, args []string) error {
			if matchID == "" {
				return fmt.Errorf("--match is required")
			}
			return withStore(func(ctx context.Context, cfg *config.Config, pool *db.Pool, store sidechannel.Store) error {
				key := session.Key(matchID)
				data, err := store.Get(ctx, key)
				if err != nil {
					return fmt.Errorf("read %s: %w", key, err)
				}
				hist, err := history.Decode(data, 0)
				if err != nil {
					return err
				}
				p := hist.Present
				out := inspection{
					MatchID:      matchID,
					Key:          key,
					Bytes:        len(data),
					Quarter:      p.CurrentQuarter,
					Clock:        match.FormatClock(p.TimeSeconds),
					TimerRunning: p.TimerRunning,
					HomeScore:    p.HomeTotalScore,
					AwayScore:    p.AwayTotalScore,
					Past:         len(hist.Past),
					Future:       len(hist.Future),
				}
				if full {
					out.Present = &p
				}
				if pool != nil {
					rec, err := finalize.NewPGFinalizer(pool.Pool).Lookup(ctx, matchID)
					switch {
					case err == nil:
						out.Finalized = &rec
					case !errors.Is(err, finalize.ErrNotRecorded):
						return err
					}
				}
				return printJSON(cmd, out)
			})
		},
	}
	cmd.Flags().StringVar(&matchID, "match", "", "Match ID")
	cmd.Flags().BoolVar(&full, "full", false, "Include the present snapshot")
	return cmd
}

// --------------------------------------------------------------------------
// finalize command
// --------------------------------------------------------------------------

func finalizeCmd() *cobra.Command {
	var (
		matchID string
		submit  bool
	)
	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Record a saved match in Postgres and purge its history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if matchID == "" {
				return fmt.Errorf("--match is required")
			}
			return withStore(func(ctx context.Context, cfg *config.Config, pool *db.Pool, store sidechannel.Store) error {
				if pool == nil {
					return fmt.Errorf("DATABASE_URL is required to finalize")
				}
				pg := finalize.NewPGFinalizer(pool.Pool)
				if prev, err := pg.Lookup(ctx, matchID); err == nil {
					logger.Warn("Match already finalized, overwriting",
						"match_id", matchID, "finalized_at", prev.FinalizedAt,
						"home_score", prev.HomeScore, "away_score", prev.AwayScore)
				} else if !errors.Is(err, finalize.ErrNotRecorded) {
					return err
				}
				chain := finalize.Chain{pg}
				if submit {
					if !cfg.HasLeagueAPI() {
						return fmt.Errorf("--submit needs LEAGUE_API_URL")
					}
					lc := league.NewClient(cfg.LeagueAPIURL, cfg.LeagueAPIKey, cfg.LeagueAPIRPM, logger)
					chain = append(chain, finalize.Remote{Submitter: lc})
				}

				mgr := live.NewManager(ctx, live.Options{Store: store, Capacity: cfg.HistoryCapacity, Logger: logger})
				defer mgr.Shutdown(context.Background())

				snap, err := mgr.Open(ctx, matchID)
				if err != nil {
					return fmt.Errorf("open %s: %w", matchID, err)
				}
				// Saved mid-quarter with the clock running; a finalized match is over.
				if snap.TimerRunning {
					mgr.Dispatch(ctx, matchID, match.ToggleTimer{})
				}

				res, err := finalize.Match(ctx, mgr, chain, matchID, logger)
				if err != nil {
					return err
				}
				for _, e := range res.Errors {
					logger.Error("finalize error", "error", e)
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&matchID, "match", "", "Match ID")
	cmd.Flags().BoolVar(&submit, "submit", false, "Also submit the result to the league API")
	return cmd
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				start := time.Now()
				if err := db.Migrate(ctx, pool.Pool, logger); err != nil {
					return err
				}
				logger.Info("Migration complete", "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// purge command
// --------------------------------------------------------------------------

func purgeCmd() *cobra.Command {
	var (
		matchID   string
		olderThan time.Duration
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete saved match histories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (matchID == "") == (olderThan == 0) {
				return fmt.Errorf("exactly one of --match or --older-than is required")
			}
			return withStore(func(ctx context.Context, cfg *config.Config, _ *db.Pool, store sidechannel.Store) error {
				if matchID != "" {
					if err := store.Delete(ctx, session.Key(matchID)); err != nil {
						return err
					}
					logger.Info("Match history purged", "match_id", matchID)
					return nil
				}
				n, err := maintenance.Purge(ctx, store, olderThan, logger)
				if err != nil {
					return err
				}
				logger.Info("Stale histories purged", "count", n, "older_than", olderThan)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&matchID, "match", "", "Match ID")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Purge every history not written within this duration")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runDB handles config loading, DB connection, and context cancellation.
func runDB(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.HasDatabase() {
		return fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

// withStore opens the configured side-channel, connecting to Postgres first
// when DATABASE_URL is set. pool is nil without a database.
func withStore(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool, store sidechannel.Store) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	opts := cfg.SideChannelOptions()
	var pool *db.Pool
	if cfg.HasDatabase() {
		pool, err = db.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		opts.Pool = pool.Pool
	}

	store, err := sidechannel.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("open side-channel: %w", err)
	}
	defer store.Close()

	return fn(ctx, cfg, pool, store)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
