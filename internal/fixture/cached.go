package fixture

import (
	"context"
	"encoding/json"
	"time"

	"github.com/albapepper/scoracle-live/internal/cache"
)

// CachedSource serves repeat lookups from the in-memory TTL cache.
type CachedSource struct {
	src   Source
	cache *cache.Cache
}

// NewCachedSource wraps src.
func NewCachedSource(src Source, c *cache.Cache) *CachedSource {
	return &CachedSource{src: src, cache: c}
}

// Fixture returns a cached fixture or fetches it.
func (s *CachedSource) Fixture(ctx context.Context, id string) (Fixture, error) {
	key := "fixture:" + id
	var f Fixture
	if s.lookup(key, &f) {
		return f, nil
	}
	f, err := s.src.Fixture(ctx, id)
	if err != nil {
		return Fixture{}, err
	}
	s.store(key, f, cache.TTLFixture)
	return f, nil
}

// Roster returns a cached roster or fetches it.
func (s *CachedSource) Roster(ctx context.Context, teamID string) (Roster, error) {
	key := "roster:" + teamID
	var r Roster
	if s.lookup(key, &r) {
		return r, nil
	}
	r, err := s.src.Roster(ctx, teamID)
	if err != nil {
		return Roster{}, err
	}
	s.store(key, r, cache.TTLRoster)
	return r, nil
}

// InvalidateRosters drops cached rosters so the next lookup refetches them.
func (s *CachedSource) InvalidateRosters() {
	s.cache.DeletePrefix("roster:")
}

func (s *CachedSource) lookup(key string, v any) bool {
	data, _, ok := s.cache.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (s *CachedSource) store(key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.cache.Set(key, data, ttl)
}
