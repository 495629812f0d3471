// Package store implements the external cache store collaborators: an
// in-memory store with TTL and pattern clearing, and a Valkey-backed store
// for shared deployments.
package store

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/memo/internal/core/ports"
)

var _ ports.Store = (*Memory)(nil)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-memory ports.Store with lazy TTL expiry.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   clockwork.Clock
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return NewMemoryWithClock(clockwork.NewRealClock())
}

// NewMemoryWithClock creates an in-memory store with an injected clock.
// Used by tests to control expiry.
func NewMemoryWithClock(clock clockwork.Clock) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		clock:   clock,
	}
}

// Get retrieves the value for key. Returns (nil, nil) on miss or expiry.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && m.clock.Now().After(entry.expiresAt) {
		// Expired, clean up lazily. Re-check under the write lock: a Set
		// may have replaced the entry since the read.
		m.mu.Lock()
		if current, still := m.entries[key]; still && current.expiresAt == entry.expiresAt {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, nil
	}
	return entry.value, nil
}

// Set stores value under key. A zero TTL stores without expiry.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.clock.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}

// Clear removes every key matching the glob-style pattern and returns the
// number of keys removed.
func (m *Memory) Clear(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.entries {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return removed, err
		}
		if ok {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, including not-yet-collected
// expired ones.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
