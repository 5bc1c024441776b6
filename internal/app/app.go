// Package app is the application root: it constructs one dispatcher and
// one store, wires the durable settings collaborator and optional Lua
// hooks, and hands explicit references to everything that needs them.
// There are no package-level singletons.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dshills/flourish/internal/config"
	"github.com/dshills/flourish/internal/dispatch"
	"github.com/dshills/flourish/internal/events"
	"github.com/dshills/flourish/internal/kvstore"
	"github.com/dshills/flourish/internal/script"
	"github.com/dshills/flourish/internal/store"
)

// App owns the core subsystems for one application instance.
type App struct {
	Dispatcher *dispatch.Dispatcher
	Store      *store.Store

	cfg    config.Config
	logger *slog.Logger
	kv     kvstore.KV
	hooks  *script.Hooks

	detachHooks  func()
	cancelBridge func()
	stopWatch    func()
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger shared by the subsystems.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithKV overrides the durable key-value store; tests inject an in-memory
// one here.
func WithKV(kv kvstore.KV) Option {
	return func(a *App) { a.kv = kv }
}

// WithHooks attaches pre-loaded Lua hooks. The App takes ownership and
// closes them on Shutdown.
func WithHooks(h *script.Hooks) Option {
	return func(a *App) { a.hooks = h }
}

// New builds a wired application instance from the configuration.
func New(cfg config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.kv == nil {
		kv, err := kvstore.Open(cfg.Store.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("app: opening settings store: %w", err)
		}
		a.kv = kv
	}

	a.Dispatcher = dispatch.New(
		dispatch.WithHistoryCapacity(cfg.Dispatch.HistoryCapacity),
		dispatch.WithLogger(a.logger),
	)
	a.Store = store.New(
		store.WithKV(a.kv),
		store.WithSettingsKey(cfg.Store.SettingsKey),
		store.WithDefaultTTL(cfg.Store.CacheTTL),
		store.WithNotificationTTL(cfg.Store.NotificationTTL),
		store.WithLogger(a.logger),
	)

	a.cancelBridge = a.Store.Subscribe(a.announce)

	if a.hooks != nil {
		detach, err := a.hooks.Attach(a.Dispatcher)
		if err != nil {
			a.Shutdown()
			return nil, fmt.Errorf("app: attaching hooks: %w", err)
		}
		a.detachHooks = detach
	}

	if cfg.Store.WatchSettings {
		if err := a.watchSettings(); err != nil {
			a.logger.Warn("settings watch disabled", "error", err)
		}
	}

	return a, nil
}

// announce bridges store mutations onto the dispatcher. The store and the
// dispatcher stay independent of each other; the bridge is the convention
// that a mutation is followed by a domain announcement.
func (a *App) announce(_ map[string]any, action store.Action) {
	name := events.StateChanged
	switch action.Type {
	case store.ActionSettingsUpdate:
		name = events.SettingsUpdated
	case store.ActionCacheClear:
		name = events.CacheCleared
	case store.ActionNotificationAdd:
		name = events.NotificationAdded
	case store.ActionUserSet:
		name = events.UserChanged
	}

	payload := events.StateChange{Action: action.Type}
	if _, err := a.Dispatcher.Publish(context.Background(), name, payload, dispatch.WithSource("store")); err != nil {
		a.logger.Warn("state announcement dropped", "event", name, "error", err)
	}
}

// watchSettings reapplies the settings subtree when the backing file is
// rewritten externally. Only file-backed stores can watch.
func (a *App) watchSettings() error {
	file, ok := a.kv.(*kvstore.File)
	if !ok {
		return fmt.Errorf("app: settings store is not file-backed")
	}
	stop, err := file.Watch(func() {
		raw, ok, err := a.kv.Get(a.cfg.Store.SettingsKey)
		if err != nil || !ok {
			return
		}
		var loaded map[string]any
		if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
			a.logger.Warn("external settings rewrite is malformed", "error", err)
			return
		}
		if err := a.Store.SetState(map[string]any{"settings": loaded}, store.Action{Type: store.ActionSettingsUpdate}); err != nil {
			a.logger.Warn("applying external settings failed", "error", err)
		}
	}, a.logger)
	if err != nil {
		return err
	}
	a.stopWatch = stop
	return nil
}

// Shutdown disposes the subsystems in dependency order. The store persists
// settings as part of disposal. Safe to call more than once.
func (a *App) Shutdown() {
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
	if a.detachHooks != nil {
		a.detachHooks()
		a.detachHooks = nil
	}
	if a.cancelBridge != nil {
		a.cancelBridge()
		a.cancelBridge = nil
	}
	if a.hooks != nil {
		a.hooks.Close()
		a.hooks = nil
	}
	a.Store.Dispose()
	a.Dispatcher.Dispose()
}
