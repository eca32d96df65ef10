package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(start time.Time) (*MemoryStore, *time.Time) {
	clock := start
	store := NewMemoryStore()
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestMemoryStoreAllowsUpToMax(t *testing.T) {
	store, _ := newTestStore(time.Unix(1700000000, 0))
	policy := Policy{Max: 3, Window: time.Minute, BanAfter: 2}

	for i := 0; i < 3; i++ {
		decision, err := store.Hit(context.Background(), "1.2.3.4", policy)
		require.NoError(t, err)
		require.True(t, decision.Allowed, "request %d", i+1)
	}

	decision, err := store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.False(t, decision.Banned)
}

func TestMemoryStoreWindowReset(t *testing.T) {
	store, clock := newTestStore(time.Unix(1700000000, 0))
	policy := Policy{Max: 1, Window: time.Minute, BanAfter: 0}

	decision, err := store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	*clock = clock.Add(time.Minute)
	decision, err = store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestMemoryStoreBansRepeatOffenders(t *testing.T) {
	store, clock := newTestStore(time.Unix(1700000000, 0))
	policy := Policy{Max: 1, Window: time.Minute, BanAfter: 2}

	// First window: one allowed, then a violation.
	mustHit(t, store, policy)
	decision, err := store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.False(t, decision.Banned)

	// Second window: second violation trips the ban.
	*clock = clock.Add(time.Minute)
	mustHit(t, store, policy)
	decision, err = store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.True(t, decision.Banned)

	// Ban holds even for what would otherwise be a fresh window.
	*clock = clock.Add(30 * time.Second)
	decision, err = store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.True(t, decision.Banned)

	// Ban lifts after one window.
	*clock = clock.Add(time.Minute)
	decision, err = store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestMemoryStoreViolationsExpire(t *testing.T) {
	store, clock := newTestStore(time.Unix(1700000000, 0))
	policy := Policy{Max: 1, Window: time.Minute, BanAfter: 2}

	mustHit(t, store, policy)
	decision, err := store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	// After the tracking period the old violation no longer counts toward a
	// ban, so a new violation is just a rejection.
	*clock = clock.Add(3 * time.Minute)
	mustHit(t, store, policy)
	decision, err = store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.False(t, decision.Banned)
}

func TestMemoryStoreRetainsNewEntries(t *testing.T) {
	store, _ := newTestStore(time.Unix(1700000000, 0))
	policy := Policy{Max: 1, Window: time.Minute}

	// The cleanup that runs on insert must not evict the entry it just
	// created; counts have to accumulate across consecutive hits.
	mustHit(t, store, policy)
	require.Contains(t, store.clients, "1.2.3.4")

	decision, err := store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Contains(t, store.clients, "1.2.3.4")
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	store, _ := newTestStore(time.Unix(1700000000, 0))
	policy := Policy{Max: 1, Window: time.Minute}

	mustHit(t, store, policy)
	decision, err := store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	decision, err = store.Hit(context.Background(), "5.6.7.8", policy)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func mustHit(t *testing.T, store *MemoryStore, policy Policy) {
	t.Helper()
	decision, err := store.Hit(context.Background(), "1.2.3.4", policy)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}
