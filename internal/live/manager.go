// Package live keeps the matches a host is currently scoring. Each open
// match is a session plus the clock runner that ticks it; the manager
// routes commands to them, fans changes out to publishers and closes
// matches nobody has touched in a while.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/albapepper/scoracle-live/internal/broadcast"
	"github.com/albapepper/scoracle-live/internal/clock"
	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/session"
	"github.com/albapepper/scoracle-live/internal/sidechannel"
)

var (
	ErrMatchExists   = errors.New("match already exists")
	ErrMatchNotFound = errors.New("match not found")
	ErrInvalidMatch  = errors.New("invalid match")
)

// Options configures a Manager.
type Options struct {
	Store sidechannel.Store

	// Capacity bounds each match's undo history; zero means unbounded.
	Capacity int

	// PersistDebounce coalesces side-channel writes; zero writes on every
	// dispatch.
	PersistDebounce time.Duration

	// TickInterval is the length of one game second. Zero means
	// clock.DefaultInterval.
	TickInterval time.Duration

	Publishers []broadcast.Publisher
	Logger     *slog.Logger
}

// Summary describes an open match.
type Summary struct {
	MatchID      string    `json:"match_id"`
	Quarter      int       `json:"current_quarter"`
	Clock        string    `json:"clock"`
	TimerRunning bool      `json:"timer_running"`
	HomeTeamID   string    `json:"home_team_id"`
	AwayTeamID   string    `json:"away_team_id"`
	HomeScore    int       `json:"home_total_score"`
	AwayScore    int       `json:"away_total_score"`
	CanUndo      bool      `json:"can_undo"`
	CanRedo      bool      `json:"can_redo"`
	LastActivity time.Time `json:"last_activity"`
}

type entry struct {
	session  *session.Session
	clock    *clock.Runner
	lastUsed atomic.Int64
}

func (e *entry) touch() { e.lastUsed.Store(time.Now().UnixNano()) }

func (e *entry) idleSince() time.Time { return time.Unix(0, e.lastUsed.Load()) }

// Manager holds open matches by id. Safe for concurrent use.
type Manager struct {
	base   context.Context
	store  sidechannel.Store
	writer session.Writer
	opts   Options
	logger *slog.Logger

	mu      sync.RWMutex
	matches map[string]*entry

	pubMu      sync.RWMutex
	publishers []broadcast.Publisher
}

// NewManager creates a manager. Clock loops stop when base is cancelled.
func NewManager(base context.Context, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := opts.Store
	if store == nil {
		store = sidechannel.NewMemory()
	}
	var writer session.Writer = session.NewSyncWriter(store, logger)
	if opts.PersistDebounce > 0 {
		writer = session.NewDebouncedWriter(store, opts.PersistDebounce, logger)
	}
	return &Manager{
		base:       base,
		store:      store,
		writer:     writer,
		opts:       opts,
		logger:     logger,
		matches:    make(map[string]*entry),
		publishers: append([]broadcast.Publisher(nil), opts.Publishers...),
	}
}

// AddPublisher registers p for every later change of every match.
func (m *Manager) AddPublisher(p broadcast.Publisher) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	m.publishers = append(m.publishers, p)
}

// Store returns the side-channel the manager persists to.
func (m *Manager) Store() sidechannel.Store { return m.store }

// Create starts a new match from initial. It fails with ErrMatchExists when
// the match is open or has a saved history; Open resumes the latter.
func (m *Manager) Create(ctx context.Context, initial match.Snapshot) (match.Snapshot, error) {
	if initial.MatchID == "" {
		return match.Snapshot{}, fmt.Errorf("%w: match_id is required", ErrInvalidMatch)
	}
	if initial.HomeTeam.TeamID == "" || initial.AwayTeam.TeamID == "" {
		return match.Snapshot{}, fmt.Errorf("%w: both teams need a team_id", ErrInvalidMatch)
	}
	if initial.HomeTeam.TeamID == initial.AwayTeam.TeamID {
		return match.Snapshot{}, fmt.Errorf("%w: home and away share team_id %q", ErrInvalidMatch, initial.HomeTeam.TeamID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.matches[initial.MatchID]; ok {
		return match.Snapshot{}, ErrMatchExists
	}
	_, err := m.store.Get(ctx, session.Key(initial.MatchID))
	switch {
	case err == nil:
		return match.Snapshot{}, fmt.Errorf("%w: saved history found, open it instead", ErrMatchExists)
	case !errors.Is(err, sidechannel.ErrNotFound):
		return match.Snapshot{}, fmt.Errorf("checking saved history: %w", err)
	}

	e := m.start(ctx, initial.Normalize())
	m.logger.Info("Match created", "match_id", initial.MatchID)
	return e.session.Current(), nil
}

// Open resumes a match from its saved history. An already open match is
// returned as is.
func (m *Manager) Open(ctx context.Context, matchID string) (match.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.matches[matchID]; ok {
		e.touch()
		return e.session.Current(), nil
	}
	if _, err := m.store.Get(ctx, session.Key(matchID)); err != nil {
		if errors.Is(err, sidechannel.ErrNotFound) {
			return match.Snapshot{}, ErrMatchNotFound
		}
		return match.Snapshot{}, fmt.Errorf("reading saved history: %w", err)
	}

	e := m.start(ctx, match.Snapshot{MatchID: matchID})
	if !e.session.Restored() {
		e.clock.Stop()
		delete(m.matches, matchID)
		return match.Snapshot{}, fmt.Errorf("%w: saved history for %s is unreadable", ErrMatchNotFound, matchID)
	}
	m.logger.Info("Match resumed", "match_id", matchID)
	return e.session.Current(), nil
}

// start opens the session and its clock and records the entry. Caller
// holds m.mu.
func (m *Manager) start(ctx context.Context, initial match.Snapshot) *entry {
	matchID := initial.MatchID
	s := session.Open(ctx, session.Options{
		Initial:  initial,
		Capacity: m.opts.Capacity,
		Store:    m.store,
		Writer:   m.writer,
		Logger:   m.logger.With("match_id", matchID),
	})

	e := &entry{session: s}
	e.clock = clock.NewRunner(m.base, m.opts.TickInterval, func(ctx context.Context) {
		s.DispatchIf(ctx, match.TimerTick{}, func(snap match.Snapshot) bool { return snap.TimerRunning })
		e.clock.Sync(s.Current().TimerRunning)
		e.touch()
	}, m.logger.With("match_id", matchID))
	e.touch()

	s.OnChange(m.publish)
	m.matches[matchID] = e

	// A restored match whose clock was running keeps running.
	e.clock.Sync(s.Current().TimerRunning)
	return e
}

func (m *Manager) publish(snap match.Snapshot) {
	m.pubMu.RLock()
	publishers := m.publishers
	m.pubMu.RUnlock()
	for _, p := range publishers {
		p.Publish(m.base, snap)
	}
}

func (m *Manager) get(matchID string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return e, nil
}

// Get returns the session of an open match.
func (m *Manager) Get(matchID string) (*session.Session, error) {
	e, err := m.get(matchID)
	if err != nil {
		return nil, err
	}
	return e.session, nil
}

// Snapshot returns the present snapshot of an open match.
func (m *Manager) Snapshot(matchID string) (match.Snapshot, error) {
	e, err := m.get(matchID)
	if err != nil {
		return match.Snapshot{}, err
	}
	return e.session.Current(), nil
}

// Dispatch applies c to an open match and returns its present snapshot and
// whether it changed. The match clock follows the timer state.
func (m *Manager) Dispatch(ctx context.Context, matchID string, c match.Command) (match.Snapshot, bool, error) {
	e, err := m.get(matchID)
	if err != nil {
		return match.Snapshot{}, false, err
	}
	changed := e.session.Dispatch(ctx, c)
	current := e.session.Current()
	e.clock.Sync(current.TimerRunning)
	e.touch()
	return current, changed, nil
}

// List summarizes every open match, ordered by id.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	entries := make(map[string]*entry, len(m.matches))
	for id, e := range m.matches {
		entries[id] = e
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for id, e := range entries {
		snap := e.session.Current()
		out = append(out, Summary{
			MatchID:      id,
			Quarter:      snap.CurrentQuarter,
			Clock:        match.FormatClock(snap.TimeSeconds),
			TimerRunning: snap.TimerRunning,
			HomeTeamID:   snap.HomeTeam.TeamID,
			AwayTeamID:   snap.AwayTeam.TeamID,
			HomeScore:    snap.HomeTotalScore,
			AwayScore:    snap.AwayTotalScore,
			CanUndo:      e.session.CanUndo(),
			CanRedo:      e.session.CanRedo(),
			LastActivity: e.idleSince(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out
}

// Len returns the number of open matches.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches)
}

// Close stops a match's clock, writes out pending history and forgets the
// match. With purge the saved history is deleted too.
func (m *Manager) Close(ctx context.Context, matchID string, purge bool) error {
	m.mu.Lock()
	e, ok := m.matches[matchID]
	if ok {
		delete(m.matches, matchID)
	}
	m.mu.Unlock()

	if ok {
		e.clock.Stop()
		e.session.Flush(ctx)
	}
	if purge {
		if err := m.store.Delete(ctx, session.Key(matchID)); err != nil {
			return fmt.Errorf("purging %s: %w", matchID, err)
		}
	}
	if !ok && !purge {
		return ErrMatchNotFound
	}
	m.logger.Info("Match closed", "match_id", matchID, "purged", purge)
	return nil
}

// EvictIdle closes matches with no activity for maxIdle whose clock is
// stopped. Their history stays saved. Returns the closed ids.
func (m *Manager) EvictIdle(ctx context.Context, maxIdle time.Duration) []string {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.RLock()
	var idle []string
	for id, e := range m.matches {
		if e.idleSince().Before(cutoff) && !e.clock.Active() {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	sort.Strings(idle)
	evicted := idle[:0]
	for _, id := range idle {
		if err := m.Close(ctx, id, false); err != nil {
			continue
		}
		evicted = append(evicted, id)
	}
	if len(evicted) > 0 {
		m.logger.Info("Idle matches evicted", "count", len(evicted))
	}
	return evicted
}

// Shutdown stops every clock and flushes pending writes. Matches stay
// saved and resume with Open.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.matches))
	for id, e := range m.matches {
		entries = append(entries, e)
		delete(m.matches, id)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.clock.Stop()
	}
	m.writer.Flush(ctx)
	m.logger.Info("Live matches saved", "count", len(entries))
}
