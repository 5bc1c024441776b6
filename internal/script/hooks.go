// Package script runs user-supplied Lua hooks against the event dispatcher.
//
// A hook script may define two optional functions:
//
//	-- observe every delivered event
//	function on_event(name, payload)
//	end
//
//	-- rewrite a payload before delivery; return nil to keep it unchanged
//	function transform(name, payload)
//	  return payload
//	end
//
// Payloads cross the Go/Lua boundary as JSON text. Script failures follow
// dispatcher policy: logged and skipped, never fatal.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/flourish/internal/dispatch"
)

// Hooks wraps a Lua state exposing the hook functions.
//
// gopher-lua's LState is not goroutine-safe; the mutex serializes all
// calls into the script.
type Hooks struct {
	mu     sync.Mutex
	state  *lua.LState
	logger *slog.Logger

	hasOnEvent   bool
	hasTransform bool
	closed       bool
}

// Option configures Hooks.
type Option func(*Hooks)

// WithLogger sets the logger for script failures.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hooks) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Load compiles and runs the hook script at path, capturing whichever hook
// functions it defines.
func Load(path string, opts ...Option) (*Hooks, error) {
	h := &Hooks{
		state:  lua.NewState(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.state.DoFile(path); err != nil {
		h.state.Close()
		return nil, fmt.Errorf("script: loading %s: %w", path, err)
	}

	h.hasOnEvent = h.state.GetGlobal("on_event").Type() == lua.LTFunction
	h.hasTransform = h.state.GetGlobal("transform").Type() == lua.LTFunction
	return h, nil
}

// LoadString is Load for inline script source; used by tests.
func LoadString(source string, opts ...Option) (*Hooks, error) {
	h := &Hooks{
		state:  lua.NewState(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.state.DoString(source); err != nil {
		h.state.Close()
		return nil, fmt.Errorf("script: loading inline source: %w", err)
	}

	h.hasOnEvent = h.state.GetGlobal("on_event").Type() == lua.LTFunction
	h.hasTransform = h.state.GetGlobal("transform").Type() == lua.LTFunction
	return h, nil
}

// Attach wires the hooks onto a dispatcher: transform becomes a middleware
// stage, on_event a wildcard subscriber. Either may be absent from the
// script. The returned detach function removes the wildcard subscription;
// middleware lives for the dispatcher's lifetime.
func (h *Hooks) Attach(d *dispatch.Dispatcher) (func(), error) {
	if h.hasTransform {
		d.Use(h.Middleware())
	}
	if !h.hasOnEvent {
		return func() {}, nil
	}
	_, cancel, err := d.SubscribeAny(h.Handler())
	if err != nil {
		return nil, err
	}
	return cancel, nil
}

// Middleware returns a dispatcher middleware stage backed by the script's
// transform function. A script error or malformed return surfaces as a
// middleware error, which the dispatcher logs and skips.
func (h *Hooks) Middleware() dispatch.Middleware {
	return func(ev dispatch.Event) (dispatch.Event, error) {
		if !h.hasTransform {
			return ev, nil
		}
		out, err := h.call("transform", ev.Name, ev.Payload)
		if err != nil {
			return ev, err
		}
		if out == lua.LNil {
			return ev, nil
		}
		raw, ok := out.(lua.LString)
		if !ok {
			return ev, fmt.Errorf("script: transform returned %s, want string", out.Type())
		}
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return ev, fmt.Errorf("script: transform returned malformed JSON: %w", err)
		}
		ev.Payload = payload
		return ev, nil
	}
}

// Handler returns a dispatcher handler backed by the script's on_event
// function.
func (h *Hooks) Handler() dispatch.Handler {
	return func(_ context.Context, ev dispatch.Event) (any, error) {
		if !h.hasOnEvent {
			return nil, nil
		}
		_, err := h.call("on_event", ev.Name, ev.Payload)
		return nil, err
	}
}

// call invokes a global script function with (name, payloadJSON) and
// returns its first result.
func (h *Hooks) call(fn, name string, payload any) (lua.LValue, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return lua.LNil, fmt.Errorf("script: encoding payload for %s: %w", fn, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return lua.LNil, fmt.Errorf("script: hooks are closed")
	}

	if err := h.state.CallByParam(lua.P{
		Fn:      h.state.GetGlobal(fn),
		NRet:    1,
		Protect: true,
	}, lua.LString(name), lua.LString(raw)); err != nil {
		return lua.LNil, fmt.Errorf("script: %s failed: %w", fn, err)
	}
	out := h.state.Get(-1)
	h.state.Pop(1)
	return out, nil
}

// Close releases the Lua state.
func (h *Hooks) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.state.Close()
}
