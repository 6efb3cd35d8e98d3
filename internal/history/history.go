// Package history wraps the match engine with linear undo/redo.
//
// A Store keeps whole snapshots: Past (oldest first), Present and Future
// (nearest undo first). Any new change clears Future.
package history

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/albapepper/scoracle-live/internal/match"
)

// DefaultCapacity bounds Past when the caller does not choose a size.
const DefaultCapacity = 500

// Store is the undo/redo wrapper around one match.
type Store struct {
	Past    []match.Snapshot `json:"past"`
	Present match.Snapshot   `json:"present"`
	Future  []match.Snapshot `json:"future"`

	// Capacity is the maximum length of Past. Zero means unbounded.
	Capacity int `json:"-"`
}

// New returns a store whose present is initial and whose history is empty.
func New(initial match.Snapshot, capacity int) *Store {
	return &Store{
		Past:     []match.Snapshot{},
		Present:  initial,
		Future:   []match.Snapshot{},
		Capacity: capacity,
	}
}

// Dispatch runs one command through the store and reports whether Present
// changed.
func (s *Store) Dispatch(c match.Command) bool {
	switch c.(type) {
	case match.Undo:
		return s.undo()
	case match.Redo:
		return s.redo()
	}

	next, changed := match.Apply(s.Present, c)
	if !changed {
		return false
	}
	s.Past = append(s.Past, s.Present)
	s.evict()
	s.Present = next
	s.Future = []match.Snapshot{}
	return true
}

func (s *Store) undo() bool {
	n := len(s.Past)
	if n == 0 {
		return false
	}
	prev := s.Past[n-1]
	s.Past = s.Past[:n-1]
	s.Future = append([]match.Snapshot{s.Present}, s.Future...)
	s.Present = prev
	return true
}

func (s *Store) redo() bool {
	if len(s.Future) == 0 {
		return false
	}
	next := s.Future[0]
	s.Future = s.Future[1:]
	s.Past = append(s.Past, s.Present)
	s.evict()
	s.Present = next
	return true
}

// evict drops the oldest past entries beyond Capacity.
func (s *Store) evict() {
	if s.Capacity <= 0 || len(s.Past) <= s.Capacity {
		return
	}
	drop := len(s.Past) - s.Capacity
	kept := make([]match.Snapshot, s.Capacity, s.Capacity+1)
	copy(kept, s.Past[drop:])
	s.Past = kept
}

// CanUndo reports whether Past is non-empty.
func (s *Store) CanUndo() bool { return len(s.Past) > 0 }

// CanRedo reports whether Future is non-empty.
func (s *Store) CanRedo() bool { return len(s.Future) > 0 }

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	out := &Store{
		Past:     make([]match.Snapshot, len(s.Past)),
		Present:  s.Present.Clone(),
		Future:   make([]match.Snapshot, len(s.Future)),
		Capacity: s.Capacity,
	}
	for i, snap := range s.Past {
		out.Past[i] = snap.Clone()
	}
	for i, snap := range s.Future {
		out.Future[i] = snap.Clone()
	}
	return out
}

// --------------------------------------------------------------------------
// Document form
// --------------------------------------------------------------------------

// ErrNoPresent is returned when a document has no present snapshot.
var ErrNoPresent = errors.New("history document has no present snapshot")

// Encode serializes the whole store as {past, present, future}.
func Encode(s *Store) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	return data, nil
}

// Decode parses a document written by Encode. Capacity is applied to the
// decoded past so a store saved under a larger bound is trimmed.
func Decode(data []byte, capacity int) (*Store, error) {
	var doc struct {
		Past    []match.Snapshot `json:"past"`
		Present *match.Snapshot  `json:"present"`
		Future  []match.Snapshot `json:"future"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	if doc.Present == nil {
		return nil, ErrNoPresent
	}
	s := &Store{
		Past:     doc.Past,
		Present:  *doc.Present,
		Future:   doc.Future,
		Capacity: capacity,
	}
	if s.Past == nil {
		s.Past = []match.Snapshot{}
	}
	if s.Future == nil {
		s.Future = []match.Snapshot{}
	}
	s.evict()
	return s, nil
}
