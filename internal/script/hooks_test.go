package script

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/flourish/internal/dispatch"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHooks_TransformRewritesPayload(t *testing.T) {
	h, err := LoadString(`
		function transform(name, payload)
			if name == "order.simulated" then
				return '{"flagged":true}'
			end
			return nil
		end
	`, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer h.Close()

	d := dispatch.New(dispatch.WithLogger(quietLogger()))
	detach, err := h.Attach(d)
	require.NoError(t, err)
	defer detach()

	var got any
	_, _, err = d.Subscribe("order.simulated", func(_ context.Context, ev dispatch.Event) (any, error) {
		got = ev.Payload
		return nil, nil
	})
	require.NoError(t, err)

	_, err = d.Publish(context.Background(), "order.simulated", map[string]any{"flagged": false})
	require.NoError(t, err)

	payload, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, payload["flagged"])

	// Other events pass through untouched.
	var other any
	_, _, err = d.Subscribe("stock.adjusted", func(_ context.Context, ev dispatch.Event) (any, error) {
		other = ev.Payload
		return nil, nil
	})
	require.NoError(t, err)
	_, err = d.Publish(context.Background(), "stock.adjusted", "raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", other)
}

func TestHooks_OnEventObservesEveryEvent(t *testing.T) {
	h, err := LoadString(`
		seen = {}
		function on_event(name, payload)
			seen[#seen + 1] = name
		end
	`, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer h.Close()

	d := dispatch.New(dispatch.WithLogger(quietLogger()))
	detach, err := h.Attach(d)
	require.NoError(t, err)
	defer detach()

	for _, name := range []string{"a", "b"} {
		_, err = d.Publish(context.Background(), name, nil)
		require.NoError(t, err)
	}

	// Read the script-side log back out of the Lua state.
	h.mu.Lock()
	tbl, ok := h.state.GetGlobal("seen").(*lua.LTable)
	h.mu.Unlock()
	require.True(t, ok, "seen is not a table")
	assert.Equal(t, 2, tbl.Len())
}

func TestHooks_ScriptErrorIsIsolated(t *testing.T) {
	h, err := LoadString(`
		function transform(name, payload)
			error("script bug")
		end
	`, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer h.Close()

	d := dispatch.New(dispatch.WithLogger(quietLogger()))
	_, err = h.Attach(d)
	require.NoError(t, err)

	var got any
	_, _, err = d.Subscribe("x", func(_ context.Context, ev dispatch.Event) (any, error) {
		got = ev.Payload
		return nil, nil
	})
	require.NoError(t, err)

	// The failing transform is skipped; the original payload is delivered.
	_, err = d.Publish(context.Background(), "x", "untouched")
	require.NoError(t, err)
	assert.Equal(t, "untouched", got)
	assert.Equal(t, uint64(1), d.Stats().MiddlewareErrors)
}

func TestLoadString_BadSource(t *testing.T) {
	_, err := LoadString(`function (`)
	assert.Error(t, err)
}
