package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/flourish/internal/kvstore"
)

// timeNow is a variable to allow testing with fixed timestamps.
var timeNow = time.Now

// Action tags a mutation so listeners can tell what happened.
type Action struct {
	// Type names the mutation (e.g. "settings.update").
	Type string

	// Meta carries optional mutation-specific details.
	Meta map[string]any
}

// Action types used by the convenience mutators.
const (
	ActionSetState           = "state.set"
	ActionReset              = "state.reset"
	ActionSetLoading         = "ui.loading"
	ActionNotificationAdd    = "ui.notification.add"
	ActionNotificationRemove = "ui.notification.remove"
	ActionModalShow          = "ui.modal.show"
	ActionModalHide          = "ui.modal.hide"
	ActionSidebarToggle      = "ui.sidebar.toggle"
	ActionUserSet            = "session.user"
	ActionClockSet           = "session.clock"
	ActionSettingsUpdate     = "settings.update"
	ActionCacheSet           = "cache.set"
	ActionCacheRemove        = "cache.remove"
	ActionCacheClear         = "cache.clear"
)

// Listener receives the full post-mutation state and the action that caused
// it. Listener panics are recovered and logged; they never propagate.
type Listener func(state map[string]any, action Action)

// Middleware may veto or transform the incoming partial state before it is
// merged. Stages run in registration order. Returning a nil map keeps the
// incoming partial unchanged. A stage that returns an error is logged and
// skipped — the same swallow-and-continue policy the dispatcher applies to
// its middleware.
type Middleware func(next, prev map[string]any, action Action) (map[string]any, error)

// Fetcher produces a value for the read-through cache. It may block; the
// store does not hold its lock across the call.
type Fetcher func(ctx context.Context) (any, error)

// DefaultSettingsKey is the durable key settings persist under.
const DefaultSettingsKey = "flourish/settings"

// Store is the central mutable state tree with change notification, a TTL
// cache sharing the same tree, and durable persistence of the settings
// subtree. It is safe for concurrent use. The tree is owned exclusively by
// the store; State and StateAt return defensive copies.
type Store struct {
	mu         sync.Mutex
	state      map[string]any
	listeners  []*registeredListener
	middleware []Middleware
	timers     map[string]*time.Timer
	disposed   bool

	kv          kvstore.KV
	settingsKey string
	defaultTTL  time.Duration
	notifTTL    time.Duration
	logger      *slog.Logger
}

type registeredListener struct {
	id string
	fn Listener
}

// Option configures a Store.
type Option func(*Store)

// WithKV sets the durable key-value collaborator used for settings.
func WithKV(kv kvstore.KV) Option {
	return func(s *Store) { s.kv = kv }
}

// WithSettingsKey overrides the durable key settings persist under.
func WithSettingsKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.settingsKey = key
		}
	}
}

// WithDefaultTTL sets the store-wide default cache TTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithNotificationTTL sets how long non-persistent notifications live.
func WithNotificationTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.notifTTL = ttl
		}
	}
}

// WithLogger sets the logger used for listener and persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store. When a durable KV is configured, persisted settings
// are loaded and merged over the defaults.
func New(opts ...Option) *Store {
	s := &Store{
		state:       defaultState(),
		timers:      make(map[string]*time.Timer),
		settingsKey: DefaultSettingsKey,
		defaultTTL:  5 * time.Minute,
		notifTTL:    5 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loadSettings()
	return s
}

// defaultState builds the initial tree.
func defaultState() map[string]any {
	now := timeNow()
	return map[string]any{
		"currentUser": nil,
		"currentDate": now.Format("2006-01-02"),
		"currentTime": now.Format("15:04:05"),
		"settings": map[string]any{
			"theme":       "light",
			"language":    "en",
			"autoRefresh": true,
		},
		"ui": map[string]any{
			"loading":          false,
			"notifications":    []any{},
			"activeModal":      nil,
			"sidebarCollapsed": false,
		},
		"cache": map[string]any{},
	}
}

// Subscribe registers a listener invoked synchronously after every mutation.
// The returned cancel function removes the listener.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &registeredListener{id: uuid.NewString(), fn: fn}
	s.listeners = append(s.listeners, l)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, reg := range s.listeners {
			if reg.id == l.id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Use registers a middleware stage applied to every SetState call.
func (s *Store) Use(mw Middleware) {
	if mw == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middleware = append(s.middleware, mw)
}

// SetState runs the partial state through the middleware chain, deep-merges
// the result into the tree, and notifies every listener synchronously with
// the full new state. Listener failures are absorbed. The only error is
// ErrStoreDisposed.
func (s *Store) SetState(partial map[string]any, action Action) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrStoreDisposed
	}
	snapshot, listeners := s.applyLocked(partial, action)
	s.mu.Unlock()

	s.notifyListeners(listeners, snapshot, action)
	return nil
}

// applyLocked runs middleware, merges, and snapshots. Caller holds s.mu.
func (s *Store) applyLocked(partial map[string]any, action Action) (map[string]any, []*registeredListener) {
	prev := deepCopyMap(s.state)
	for _, mw := range s.middleware {
		next, err := mw(partial, prev, action)
		if err != nil {
			s.logger.Warn("store middleware failed", "action", action.Type, "error", err)
			continue
		}
		if next != nil {
			partial = next
		}
	}

	deepMerge(s.state, partial)
	return s.snapshotLocked()
}

// snapshotLocked copies the state and the listener list. Caller holds s.mu.
func (s *Store) snapshotLocked() (map[string]any, []*registeredListener) {
	listeners := make([]*registeredListener, len(s.listeners))
	copy(listeners, s.listeners)
	return deepCopyMap(s.state), listeners
}

func (s *Store) notifyListeners(listeners []*registeredListener, state map[string]any, action Action) {
	for _, l := range listeners {
		s.safeNotify(l, state, action)
	}
}

func (s *Store) safeNotify(l *registeredListener, state map[string]any, action Action) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store listener panicked", "action", action.Type, "listener", l.id, "panic", r)
		}
	}()
	l.fn(state, action)
}

// State returns a defensive deep copy of the whole tree.
func (s *Store) State() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopyMap(s.state)
}

// StateAt returns a copy of the value at a dot path (e.g. "ui.loading"),
// or nil when any segment of the path is absent.
func (s *Store) StateAt(path string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur any = s.state
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return deepCopy(cur)
}

// Reset reinitializes the tree to defaults, optionally preserving the
// settings subtree, and notifies listeners with a reset action.
func (s *Store) Reset(keepSettings bool) error {
	action := Action{Type: ActionReset}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrStoreDisposed
	}
	settings := s.state["settings"]
	s.state = defaultState()
	if keepSettings {
		s.state["settings"] = settings
	}
	s.cancelTimersLocked()
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyListeners(listeners, snapshot, action)
	return nil
}

// Dispose persists settings, cancels all owned timers, and drops listeners,
// middleware, and the cache. Mutations after Dispose return ErrStoreDisposed.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.persistSettingsLocked()
	s.cancelTimersLocked()
	s.listeners = nil
	s.middleware = nil
	s.state["cache"] = map[string]any{}
	s.disposed = true
}

// cancelTimersLocked stops every owned eviction and expiry timer so no
// callback fires against a reset or disposed store. Caller holds s.mu.
func (s *Store) cancelTimersLocked() {
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

// loadSettings merges the persisted settings document over the defaults.
func (s *Store) loadSettings() {
	if s.kv == nil {
		return
	}
	raw, ok, err := s.kv.Get(s.settingsKey)
	if err != nil {
		s.logger.Warn("loading settings failed", "key", s.settingsKey, "error", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	var loaded map[string]any
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		s.logger.Warn("persisted settings are malformed", "key", s.settingsKey, "error", err)
		return
	}
	settings, _ := s.state["settings"].(map[string]any)
	deepMerge(settings, loaded)
}

// persistSettingsLocked writes the settings subtree to the durable KV.
// Caller holds s.mu.
func (s *Store) persistSettingsLocked() {
	if s.kv == nil {
		return
	}
	settings, _ := s.state["settings"].(map[string]any)
	raw, err := json.Marshal(settings)
	if err != nil {
		s.logger.Error("encoding settings failed", "error", err)
		return
	}
	if err := s.kv.Set(s.settingsKey, string(raw)); err != nil {
		s.logger.Error("persisting settings failed", "key", s.settingsKey, "error", err)
	}
}
