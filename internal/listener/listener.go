// Package listener provides a Postgres LISTEN/NOTIFY consumer for scoring
// commands issued by other services. It holds a dedicated pgx connection
// (not from the pool) listening on the `match_command` channel.
//
// A producer enqueues a command with
//
//	SELECT pg_notify('match_command', '{"match_id":"m1","command":{"type":"ToggleTimer"}}');
//
// and the consumer dispatches it into the live match, opening the match
// from its saved history first when needed.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-live/internal/config"
	"github.com/albapepper/scoracle-live/internal/live"
	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/wire"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// CommandEvent is the JSON payload from pg_notify('match_command', ...).
type CommandEvent struct {
	MatchID   string          `json:"match_id"`
	Command   json.RawMessage `json:"command"`
	Timestamp int64           `json:"ts,omitempty"`
}

// Dispatcher is the part of live.Manager the listener drives.
type Dispatcher interface {
	Open(ctx context.Context, matchID string) (match.Snapshot, error)
	Dispatch(ctx context.Context, matchID string, c match.Command) (match.Snapshot, bool, error)
}

// Start opens a dedicated connection and listens on the command channel.
// It reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, d Dispatcher, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		connected, err := listenLoop(ctx, dbURL, d, logger)
		if ctx.Err() != nil {
			logger.Info("Command listener stopped (context cancelled)")
			return
		}
		if connected {
			backoff = reconnectBackoff
		}

		logger.Error("Command listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled; connected reports whether LISTEN succeeded.
func listenLoop(ctx context.Context, dbURL string, d Dispatcher, logger *slog.Logger) (connected bool, err error) {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+config.CommandChannel)
	if err != nil {
		return false, fmt.Errorf("LISTEN %s: %w", config.CommandChannel, err)
	}
	logger.Info("Command listener connected", "channel", config.CommandChannel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, fmt.Errorf("wait for notification: %w", err)
		}
		// Handled inline: commands for a match must apply in arrival order.
		if err := Handle(ctx, d, []byte(notification.Payload), logger); err != nil {
			logger.Warn("Command notification rejected",
				"payload", notification.Payload, "error", err)
		}
	}
}

// Handle decodes one notification payload and dispatches it.
func Handle(ctx context.Context, d Dispatcher, payload []byte, logger *slog.Logger) error {
	var event CommandEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("parse command event: %w", err)
	}
	if event.MatchID == "" {
		return errors.New("command event has no match_id")
	}
	cmd, err := wire.Decode(event.Command)
	if err != nil {
		return err
	}

	snap, changed, err := d.Dispatch(ctx, event.MatchID, cmd)
	if errors.Is(err, live.ErrMatchNotFound) {
		if _, openErr := d.Open(ctx, event.MatchID); openErr != nil {
			return fmt.Errorf("open %s: %w", event.MatchID, openErr)
		}
		snap, changed, err = d.Dispatch(ctx, event.MatchID, cmd)
	}
	if err != nil {
		return fmt.Errorf("dispatch to %s: %w", event.MatchID, err)
	}

	logger.Debug("Command applied",
		"match_id", event.MatchID,
		"kind", cmd.Kind(),
		"changed", changed,
		"clock", match.FormatClock(snap.TimeSeconds))
	return nil
}
