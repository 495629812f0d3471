package query

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/memo/internal/core/domain"
)

// statsTracker keeps per-key access statistics. Created on first write,
// bumped on every hit, pruned after the retention window.
type statsTracker struct {
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]domain.QueryStats
}

func newStatsTracker(clock clockwork.Clock) *statsTracker {
	return &statsTracker{
		clock:   clock,
		entries: make(map[string]domain.QueryStats),
	}
}

// created records the first observation of a freshly written key.
func (s *statsTracker) created(key string, resultSize int64) {
	now := s.clock.Now()
	s.mu.Lock()
	s.entries[key] = domain.QueryStats{
		FirstAccess: now,
		LastAccess:  now,
		AccessCount: 1,
		ResultSize:  resultSize,
	}
	s.mu.Unlock()
}

// accessed bumps the counters for a served hit and returns the updated
// stats. A key whose stats were pruned restarts from a fresh record.
func (s *statsTracker) accessed(key string, resultSize int64) domain.QueryStats {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.entries[key]
	if !ok {
		stats = domain.QueryStats{FirstAccess: now, ResultSize: resultSize}
	}
	stats.LastAccess = now
	stats.AccessCount++
	stats.ResultSize = resultSize
	s.entries[key] = stats
	return stats
}

// get returns the recorded stats for key.
func (s *statsTracker) get(key string) (domain.QueryStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.entries[key]
	return stats, ok
}

// forget drops the stats for the given keys.
func (s *statsTracker) forget(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
}

// len returns the number of tracked keys.
func (s *statsTracker) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// prune removes stats not accessed within the retention window. It works
// over a snapshot of the key set so concurrent hits are never blocked for
// the duration of the sweep.
func (s *statsTracker) prune(retention time.Duration) int {
	cutoff := s.clock.Now().Add(-retention)

	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	pruned := 0
	for _, key := range keys {
		s.mu.Lock()
		if stats, ok := s.entries[key]; ok && stats.LastAccess.Before(cutoff) {
			delete(s.entries, key)
			pruned++
		}
		s.mu.Unlock()
	}
	return pruned
}

// pruneLoop sweeps stale stats every interval until ctx is done.
func (s *statsTracker) pruneLoop(ctx context.Context, interval, retention time.Duration) {
	ticker := s.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.prune(retention)
			}
		}
	}()
}
