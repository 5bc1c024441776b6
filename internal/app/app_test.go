package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flourish/internal/config"
	"github.com/dshills/flourish/internal/dispatch"
	"github.com/dshills/flourish/internal/events"
	"github.com/dshills/flourish/internal/kvstore"
	"github.com/dshills/flourish/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		Dispatch: config.DispatchConfig{HistoryCapacity: 10},
		Store: config.StoreConfig{
			SettingsKey:     "flourish/settings",
			CacheTTL:        time.Minute,
			NotificationTTL: time.Minute,
		},
	}
}

func newTestApp(t *testing.T) (*App, *kvstore.Memory) {
	t.Helper()
	kv := kvstore.NewMemory()
	a, err := New(testConfig(),
		WithKV(kv),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	return a, kv
}

func TestNew_WiresDispatcherAndStore(t *testing.T) {
	a, _ := newTestApp(t)
	defer a.Shutdown()

	require.NotNil(t, a.Dispatcher)
	require.NotNil(t, a.Store)
	assert.Equal(t, "light", a.Store.StateAt("settings.theme"))
}

func TestApp_AnnouncesSettingsUpdate(t *testing.T) {
	a, _ := newTestApp(t)
	defer a.Shutdown()

	var (
		mu   sync.Mutex
		seen []string
	)
	_, _, err := a.Dispatcher.SubscribeAny(func(_ context.Context, ev dispatch.Event) (any, error) {
		mu.Lock()
		seen = append(seen, ev.Name)
		mu.Unlock()
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, a.Store.UpdateSettings(map[string]any{"theme": "dark"}))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, events.SettingsUpdated)
}

func TestApp_AnnouncesStateChangeWithAction(t *testing.T) {
	a, _ := newTestApp(t)
	defer a.Shutdown()

	var got events.StateChange
	_, _, err := a.Dispatcher.Subscribe(events.StateChanged, func(_ context.Context, ev dispatch.Event) (any, error) {
		got = ev.Payload.(events.StateChange)
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, a.Store.SetState(map[string]any{"extra": 1}, store.Action{Type: store.ActionSetState}))
	assert.Equal(t, store.ActionSetState, got.Action)
}

func TestApp_AnnouncesCacheCleared(t *testing.T) {
	a, _ := newTestApp(t)
	defer a.Shutdown()

	fired := false
	_, _, err := a.Dispatcher.Subscribe(events.CacheCleared, func(_ context.Context, ev dispatch.Event) (any, error) {
		fired = true
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, a.Store.SetCache("k", "v", 0))
	require.NoError(t, a.Store.ClearCache())
	assert.True(t, fired)
}

func TestShutdown_DisposesEverything(t *testing.T) {
	a, kv := newTestApp(t)

	require.NoError(t, a.Store.UpdateSettings(map[string]any{"theme": "dark"}))
	a.Shutdown()

	err := a.Store.SetState(map[string]any{"x": 1}, store.Action{Type: store.ActionSetState})
	assert.ErrorIs(t, err, store.ErrStoreDisposed)

	_, err = a.Dispatcher.Publish(context.Background(), "x", nil)
	assert.ErrorIs(t, err, dispatch.ErrDispatcherDisposed)

	// Settings survived disposal in the KV store.
	raw, ok, err := kv.Get("flourish/settings")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, "dark")
}
