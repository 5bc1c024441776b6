package store

import (
	"context"
	"time"
)

// cache entries live in the state tree under "cache" as
// {value, storedAt}; TTL checks are lazy on read, backstopped by an owned
// eviction timer when a TTL was supplied at write time.

// SetCache stores a value under key with the given TTL. A non-positive TTL
// falls back to the store-wide default. The scheduled eviction timer is
// owned by the store and cancelled on Reset and Dispose.
func (s *Store) SetCache(key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	action := Action{Type: ActionCacheSet, Meta: map[string]any{"key": key}}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrStoreDisposed
	}
	entry := map[string]any{
		"value":    value,
		"storedAt": timeNow(),
	}
	snapshot, listeners := s.applyLocked(map[string]any{
		"cache": map[string]any{key: entry},
	}, action)

	if timer, ok := s.timers["cache:"+key]; ok {
		timer.Stop()
	}
	s.timers["cache:"+key] = time.AfterFunc(ttl, func() {
		_ = s.RemoveCache(key)
	})
	s.mu.Unlock()

	s.notifyListeners(listeners, snapshot, action)
	return nil
}

// GetCache returns the cached value for key when it is younger than ttl
// (store default when non-positive). A stale entry is evicted lazily and
// reported as a miss.
func (s *Store) GetCache(key string, ttl time.Duration) (any, bool) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	value, ok := s.cacheLookupLocked(key, ttl)
	if ok {
		value = deepCopy(value)
		s.mu.Unlock()
		return value, true
	}
	s.mu.Unlock()
	return nil, false
}

// FetchCache is the read-through variant of GetCache: on a miss or stale
// entry it awaits the fetcher, stores the result under key with ttl, and
// returns it. The store lock is not held across the fetch.
func (s *Store) FetchCache(ctx context.Context, key string, ttl time.Duration, fetcher Fetcher) (any, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if value, ok := s.GetCache(key, ttl); ok {
		return value, nil
	}

	value, err := fetcher(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.SetCache(key, value, ttl); err != nil {
		return nil, err
	}
	return value, nil
}

// cacheLookupLocked returns the live value for key, evicting a stale entry.
// Caller holds s.mu.
func (s *Store) cacheLookupLocked(key string, ttl time.Duration) (any, bool) {
	cache, _ := s.state["cache"].(map[string]any)
	entry, ok := cache[key].(map[string]any)
	if !ok {
		return nil, false
	}
	storedAt, ok := entry["storedAt"].(time.Time)
	if !ok || timeNow().Sub(storedAt) >= ttl {
		delete(cache, key)
		if timer, tok := s.timers["cache:"+key]; tok {
			timer.Stop()
			delete(s.timers, "cache:"+key)
		}
		return nil, false
	}
	return entry["value"], true
}

// RemoveCache evicts one cache entry and cancels its eviction timer.
// Listeners are notified so dependent views can refresh.
func (s *Store) RemoveCache(key string) error {
	action := Action{Type: ActionCacheRemove, Meta: map[string]any{"key": key}}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrStoreDisposed
	}
	cache, _ := s.state["cache"].(map[string]any)
	if _, ok := cache[key]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(cache, key)
	if timer, ok := s.timers["cache:"+key]; ok {
		timer.Stop()
		delete(s.timers, "cache:"+key)
	}
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyListeners(listeners, snapshot, action)
	return nil
}

// ClearCache drops every cache entry and announces it with a user-facing
// info notification. The notification is a deliberate UX coupling: clearing
// the cache is always a user-visible maintenance action.
func (s *Store) ClearCache() error {
	action := Action{Type: ActionCacheClear}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrStoreDisposed
	}
	s.state["cache"] = map[string]any{}
	for key, timer := range s.timers {
		if len(key) > 6 && key[:6] == "cache:" {
			timer.Stop()
			delete(s.timers, key)
		}
	}
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyListeners(listeners, snapshot, action)

	_, err := s.AddNotification(Notification{
		Type:    NotifyInfo,
		Message: "cache cleared",
	})
	return err
}
