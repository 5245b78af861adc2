package engine

import (
	"sync"
	"time"

	"taskgate/internal/domain"
)

// statsCacheSize is how many leaderboard rows the cache holds;
// callers slice down from this.
const statsCacheSize = 50

// StatsCache memoizes leaderboard statistics with a TTL. It holds no
// clock of its own: callers pass the current time into Get, so
// freshness follows whatever time source the engine runs on.
type StatsCache struct {
	TTL time.Duration

	mu        sync.Mutex
	entries   []domain.LeaderboardEntry
	fetchedAt time.Time
}

func NewStatsCache(ttl time.Duration) *StatsCache {
	return &StatsCache{TTL: ttl}
}

// Get returns cached entries when fresh, otherwise fetches and stores.
func (c *StatsCache) Get(now time.Time, fetch func() ([]domain.LeaderboardEntry, error)) ([]domain.LeaderboardEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries != nil && now.Sub(c.fetchedAt) < c.TTL {
		return c.entries, nil
	}
	entries, err := fetch()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	c.entries = entries
	c.fetchedAt = now
	return entries, nil
}

// Invalidate drops the cached entries.
func (c *StatsCache) Invalidate() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}
