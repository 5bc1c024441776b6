package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_HitWithinTTL(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.SetCache("sales:2026-08-23", 42, time.Minute))

	got, ok := s.GetCache("sales:2026-08-23", time.Minute)
	require.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestCache_LazyExpiry(t *testing.T) {
	s := newTestStore()

	base := time.Now()
	timeNow = func() time.Time { return base }
	defer func() { timeNow = time.Now }()

	require.NoError(t, s.SetCache("k", "v", 20*time.Millisecond))

	_, ok := s.GetCache("k", 20*time.Millisecond)
	require.True(t, ok)

	// Advance the clock past the TTL; the entry reads as a miss and is
	// evicted lazily.
	timeNow = func() time.Time { return base.Add(25 * time.Millisecond) }
	_, ok = s.GetCache("k", 20*time.Millisecond)
	assert.False(t, ok)
	assert.Nil(t, s.StateAt("cache.k"))
}

func TestCache_ScheduledEviction(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.SetCache("k", "v", 15*time.Millisecond))
	assert.Eventually(t, func() bool {
		return s.StateAt("cache.k") == nil
	}, time.Second, 5*time.Millisecond)
}

func TestCache_FetchThrough(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	fetches := 0
	fetcher := func(context.Context) (any, error) {
		fetches++
		return "fetched", nil
	}

	got, err := s.FetchCache(ctx, "k", time.Minute, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "fetched", got)
	assert.Equal(t, 1, fetches)

	// Second read is served from the cache.
	got, err = s.FetchCache(ctx, "k", time.Minute, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "fetched", got)
	assert.Equal(t, 1, fetches)
}

func TestCache_FetchErrorNotCached(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	boom := errors.New("backend down")
	_, err := s.FetchCache(ctx, "k", time.Minute, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := s.GetCache("k", time.Minute)
	assert.False(t, ok)

	_, err = s.FetchCache(ctx, "k", time.Minute, nil)
	assert.ErrorIs(t, err, ErrNilFetcher)
}

func TestCache_RemoveAndClear(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.SetCache("a", 1, time.Minute))
	require.NoError(t, s.SetCache("b", 2, time.Minute))

	require.NoError(t, s.RemoveCache("a"))
	_, ok := s.GetCache("a", time.Minute)
	assert.False(t, ok)
	_, ok = s.GetCache("b", time.Minute)
	assert.True(t, ok)

	require.NoError(t, s.ClearCache())
	_, ok = s.GetCache("b", time.Minute)
	assert.False(t, ok)

	// ClearCache emits a user-facing notification.
	list := s.StateAt("ui.notifications").([]any)
	require.Len(t, list, 1)
	assert.Equal(t, NotifyInfo, list[0].(Notification).Type)
}

func TestCache_RemoveMissingIsNoop(t *testing.T) {
	s := newTestStore()

	calls := 0
	s.Subscribe(func(map[string]any, Action) { calls++ })

	require.NoError(t, s.RemoveCache("absent"))
	assert.Zero(t, calls, "removing an absent key must not notify")
}
