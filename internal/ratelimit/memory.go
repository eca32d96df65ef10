package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	clients map[string]*counter
	now     func() time.Time
}

type counter struct {
	windowStart  time.Time
	count        int
	violations   int
	violationTTL time.Time
	bannedUntil  time.Time
	lastSeen     time.Time
}

var _ CounterStore = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clients: make(map[string]*counter), now: time.Now}
}

// Hit records one request for key and decides whether it may proceed.
func (s *MemoryStore) Hit(ctx context.Context, key string, policy Policy) (Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.clients[key]
	if !ok {
		// lastSeen must be set before cleanup runs, or the fresh entry
		// looks stale and is evicted in the same call.
		entry = &counter{windowStart: now, lastSeen: now}
		s.clients[key] = entry
		s.cleanupLocked(now, policy.Window)
	}
	entry.lastSeen = now

	if now.Before(entry.bannedUntil) {
		return Decision{Banned: true}, nil
	}

	if now.Sub(entry.windowStart) >= policy.Window {
		entry.windowStart = now
		entry.count = 0
	}

	entry.count++
	if entry.count <= policy.Max {
		return Decision{Allowed: true}, nil
	}

	// One violation per overflowed window, counted on the first rejection.
	if entry.count == policy.Max+1 {
		if now.After(entry.violationTTL) {
			entry.violations = 0
		}
		entry.violations++
		entry.violationTTL = now.Add(2 * policy.Window)
		if policy.BanAfter > 0 && entry.violations >= policy.BanAfter {
			entry.bannedUntil = now.Add(policy.Window)
			return Decision{Banned: true}, nil
		}
	}

	return Decision{Banned: now.Before(entry.bannedUntil)}, nil
}

func (s *MemoryStore) cleanupLocked(now time.Time, window time.Duration) {
	stale := 2 * window
	if stale <= 0 {
		return
	}
	for key, entry := range s.clients {
		if now.Sub(entry.lastSeen) > stale && now.After(entry.bannedUntil) {
			delete(s.clients, key)
		}
	}
}
