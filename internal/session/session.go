// Package session is the boundary callers drive a live match through. A
// Session owns one history store, serializes every dispatch, and writes the
// whole store to a durable side-channel after each one so a crashed or
// reloaded host can pick the game back up.
//
// Sessions are ordinary values: a host running several courts opens one
// per match.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/albapepper/scoracle-live/internal/history"
	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/sidechannel"
)

// DefaultKey is used when a session has neither a key nor a match id.
const DefaultKey = "scoring:history"

// Key returns the side-channel key for a match.
func Key(matchID string) string {
	if matchID == "" {
		return DefaultKey
	}
	return "scoring:" + matchID + ":history"
}

// Options configures Open.
type Options struct {
	// Key overrides Key(Initial.MatchID).
	Key string

	// Initial is the present snapshot used when nothing can be restored.
	Initial match.Snapshot

	// Capacity bounds the undo history; zero means unbounded.
	Capacity int

	// Store is read once at open. Writes go through Writer, which defaults
	// to a SyncWriter over Store.
	Store  sidechannel.Store
	Writer Writer

	Logger *slog.Logger
}

// Session is one live match.
type Session struct {
	key      string
	writer   Writer
	logger   *slog.Logger
	restored bool

	mu       sync.Mutex
	store    *history.Store
	onChange []func(match.Snapshot)
}

// Open restores the history stored under the session key, or starts from
// opts.Initial when the key is missing or unreadable. Restore failures are
// logged, never returned.
func Open(ctx context.Context, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := opts.Store
	if store == nil {
		store = sidechannel.NewMemory()
	}
	writer := opts.Writer
	if writer == nil {
		writer = NewSyncWriter(store, logger)
	}
	key := opts.Key
	if key == "" {
		key = Key(opts.Initial.MatchID)
	}

	s := &Session{
		key:    key,
		writer: writer,
		logger: logger.With("key", key),
	}

	restored, err := restore(ctx, store, key, opts.Capacity)
	switch {
	case err == nil:
		s.store = restored
		s.restored = true
		s.logger.Info("Session restored from side-channel",
			"match_id", restored.Present.MatchID,
			"past", len(restored.Past),
			"future", len(restored.Future))
	case errors.Is(err, sidechannel.ErrNotFound):
		s.store = history.New(opts.Initial, opts.Capacity)
		s.logger.Debug("No saved session, starting fresh", "match_id", opts.Initial.MatchID)
	default:
		s.store = history.New(opts.Initial, opts.Capacity)
		s.logger.Warn("Failed to restore session, starting fresh",
			"match_id", opts.Initial.MatchID, "error", err)
	}
	return s
}

func restore(ctx context.Context, store sidechannel.Store, key string, capacity int) (*history.Store, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return history.Decode(data, capacity)
}

// Dispatch applies one command and persists the resulting store. It
// reports whether the present snapshot changed.
func (s *Session) Dispatch(ctx context.Context, c match.Command) bool {
	return s.DispatchIf(ctx, c, nil)
}

// DispatchIf is Dispatch guarded by cond, which sees the present snapshot
// under the session lock. When cond returns false nothing is applied or
// written. A nil cond always passes.
func (s *Session) DispatchIf(ctx context.Context, c match.Command, cond func(match.Snapshot) bool) bool {
	s.mu.Lock()
	if cond != nil && !cond(s.store.Present) {
		s.mu.Unlock()
		return false
	}
	changed := s.store.Dispatch(c)
	current := s.store.Present.Clone()
	data, err := history.Encode(s.store)
	if err != nil {
		s.logger.Error("Failed to encode session history", "error", err)
	} else {
		s.writer.Write(ctx, s.key, data)
	}
	observers := s.onChange
	s.mu.Unlock()

	if changed {
		for _, fn := range observers {
			fn(current)
		}
	}
	return changed
}

// Current returns a copy of the present snapshot.
func (s *Session) Current() match.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Present.Clone()
}

// CanUndo reports whether there is a change to undo.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.CanUndo()
}

// CanRedo reports whether there is an undone change to redo.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.CanRedo()
}

// History returns a copy of the whole store.
func (s *Session) History() *history.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Clone()
}

// OnChange registers fn to run after every dispatch that changes the
// present snapshot. fn runs on the dispatching goroutine, outside the
// session lock.
func (s *Session) OnChange(fn func(match.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Key returns the side-channel key.
func (s *Session) Key() string { return s.key }

// Restored reports whether Open loaded a saved store.
func (s *Session) Restored() bool { return s.restored }

// Flush forces pending side-channel writes out.
func (s *Session) Flush(ctx context.Context) { s.writer.Flush(ctx) }
