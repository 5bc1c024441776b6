package dispatch

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tidwall/match"
)

// DefaultHistoryCapacity is the number of events retained for diagnostics
// when no capacity is configured.
const DefaultHistoryCapacity = 100

// Dispatcher is the publish/subscribe hub. Components register interest in
// named events; producers publish; the dispatcher delivers to matching
// subscribers in priority order, isolates their failures, and retains a
// bounded history.
//
// A Dispatcher is safe for concurrent use. Each Publish call runs its own
// sequential delivery chain in the caller's goroutine; the internal mutex is
// held only to snapshot subscriber lists, never across handler invocation,
// so unrelated publishes are never serialized against each other.
type Dispatcher struct {
	mu         sync.RWMutex
	subs       map[string][]*subscription
	wildcards  []*subscription
	middleware []Middleware
	history    *history
	seq        uint64
	disposed   bool

	logger *slog.Logger

	// Stats
	eventsPublished  atomic.Uint64
	handlersInvoked  atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
	middlewareErrors atomic.Uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHistoryCapacity sets the history ring capacity.
func WithHistoryCapacity(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.history = newHistory(n)
		}
	}
}

// WithLogger sets the logger used for middleware and handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a dispatcher with the given options.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		subs:    make(map[string][]*subscription),
		history: newHistory(DefaultHistoryCapacity),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers a handler for the named event. It returns the
// subscription ID and a cancel function that removes the subscription.
func (d *Dispatcher) Subscribe(name string, handler Handler, opts ...SubscriptionOption) (string, func(), error) {
	if handler == nil {
		return "", nil, ErrNilHandler
	}
	if name == "" {
		return "", nil, ErrEmptyEventName
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return "", nil, ErrDispatcherDisposed
	}

	sub := &subscription{
		id:      uuid.NewString(),
		name:    name,
		handler: handler,
		seq:     d.seq,
	}
	d.seq++
	for _, opt := range opts {
		opt(sub)
	}

	list := append(d.subs[name], sub)
	// Higher priority first; insertion order breaks ties.
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority > list[j].priority
		}
		return list[i].seq < list[j].seq
	})
	d.subs[name] = list

	id := sub.id
	return id, func() { d.UnsubscribeID(name, id) }, nil
}

// SubscribeOnce registers a handler that is removed after its first delivery.
func (d *Dispatcher) SubscribeOnce(name string, handler Handler, opts ...SubscriptionOption) (string, func(), error) {
	return d.Subscribe(name, handler, append(opts, WithOnce())...)
}

// SubscribeAny registers a wildcard handler invoked for every published
// event, after all per-name subscribers. Wildcard handlers run in
// registration order; priority does not apply.
func (d *Dispatcher) SubscribeAny(handler Handler) (string, func(), error) {
	return d.subscribeWildcard("", handler)
}

// SubscribeMatch registers a handler for every event whose name matches the
// glob pattern (e.g. "order.*"). Match handlers are delivered with the
// wildcard pass, in registration order.
func (d *Dispatcher) SubscribeMatch(pattern string, handler Handler) (string, func(), error) {
	if pattern == "" {
		return "", nil, ErrEmptyEventName
	}
	return d.subscribeWildcard(pattern, handler)
}

func (d *Dispatcher) subscribeWildcard(pattern string, handler Handler) (string, func(), error) {
	if handler == nil {
		return "", nil, ErrNilHandler
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return "", nil, ErrDispatcherDisposed
	}

	sub := &subscription{
		id:      uuid.NewString(),
		handler: handler,
		pattern: pattern,
		seq:     d.seq,
	}
	d.seq++
	d.wildcards = append(d.wildcards, sub)

	id := sub.id
	return id, func() { d.removeWildcard(id) }, nil
}

// Unsubscribe removes all subscriptions for the named event.
func (d *Dispatcher) Unsubscribe(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, name)
}

// UnsubscribeID removes one subscription for the named event by ID.
// It returns false when no matching subscription exists.
func (d *Dispatcher) UnsubscribeID(name, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeLocked(name, id)
}

func (d *Dispatcher) removeLocked(name, id string) bool {
	list := d.subs[name]
	for i, s := range list {
		if s.id == id {
			d.subs[name] = append(list[:i], list[i+1:]...)
			// The name's list is dropped entirely once empty.
			if len(d.subs[name]) == 0 {
				delete(d.subs, name)
			}
			return true
		}
	}
	return false
}

func (d *Dispatcher) removeWildcard(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.wildcards {
		if s.id == id {
			d.wildcards = append(d.wildcards[:i], d.wildcards[i+1:]...)
			return true
		}
	}
	return false
}

// Use registers a middleware stage. Stages apply to every published event in
// registration order, before subscriber delivery.
func (d *Dispatcher) Use(mw Middleware) {
	if mw == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middleware = append(d.middleware, mw)
}

// Publish constructs an event, records it in history, runs it through the
// middleware chain, and delivers it to per-name subscribers in priority
// order followed by wildcard subscribers in registration order. Each handler
// is awaited before the next starts. Handler failures are isolated: the
// error is logged, recorded in the result list, and delivery continues.
//
// The returned results are in delivery order. The only error Publish itself
// returns is ErrDispatcherDisposed.
func (d *Dispatcher) Publish(ctx context.Context, name string, payload any, opts ...PublishOption) ([]Result, error) {
	if name == "" {
		return nil, ErrEmptyEventName
	}

	ev := newEvent(name, payload, opts...)

	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return nil, ErrDispatcherDisposed
	}
	d.history.append(ev)
	stages := make([]Middleware, len(d.middleware))
	copy(stages, d.middleware)
	d.mu.Unlock()

	d.eventsPublished.Add(1)

	// Middleware chain. A failing stage is logged and skipped; the event is
	// not discarded.
	for _, stage := range stages {
		next, err := stage(ev)
		if err != nil {
			d.middlewareErrors.Add(1)
			d.logger.Warn("event middleware failed", "event", ev.Name, "error", err)
			continue
		}
		ev = next
	}

	var results []Result

	// Per-name subscribers, priority order. The list is re-snapshotted after
	// every handler so that once-removal and re-entrant unsubscribes made by
	// a handler are observed before the next handler runs.
	delivered := make(map[string]bool)
	for {
		sub := d.nextSubscriber(ev.Name, delivered)
		if sub == nil {
			break
		}
		delivered[sub.id] = true
		if !sub.claim() {
			continue
		}
		if sub.once {
			d.mu.Lock()
			d.removeLocked(ev.Name, sub.id)
			d.mu.Unlock()
		}
		results = append(results, d.invoke(ctx, ev, sub))
	}

	// Wildcard subscribers, registration order.
	d.mu.RLock()
	wilds := make([]*subscription, len(d.wildcards))
	copy(wilds, d.wildcards)
	d.mu.RUnlock()

	for _, sub := range wilds {
		if sub.pattern != "" && !match.Match(ev.Name, sub.pattern) {
			continue
		}
		results = append(results, d.invoke(ctx, ev, sub))
	}

	return results, nil
}

// nextSubscriber returns the highest-priority subscriber for name that has
// not yet been delivered to in this publish, or nil when none remain.
func (d *Dispatcher) nextSubscriber(name string, delivered map[string]bool) *subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.subs[name] {
		if !delivered[s.id] {
			return s
		}
	}
	return nil
}

// invoke runs one handler with panic recovery and records the outcome.
func (d *Dispatcher) invoke(ctx context.Context, ev Event, sub *subscription) (res Result) {
	res.SubscriptionID = sub.id
	d.handlersInvoked.Add(1)

	defer func() {
		if r := recover(); r != nil {
			d.handlerPanics.Add(1)
			res.Value = nil
			res.Err = &PanicError{
				SubscriptionID: sub.id,
				EventName:      ev.Name,
				Value:          r,
				Stack:          debug.Stack(),
			}
			d.logger.Error("event handler panicked", "event", ev.Name, "subscription", sub.id, "panic", r)
		}
	}()

	value, err := sub.handler(ctx, ev)
	if err != nil {
		d.handlerErrors.Add(1)
		d.logger.Warn("event handler failed", "event", ev.Name, "subscription", sub.id, "error", err)
		res.Err = err
		return res
	}
	res.Value = value
	return res
}

// HasSubscribers reports whether any per-name subscription exists for name.
func (d *Dispatcher) HasSubscribers(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[name]) > 0
}

// SubscriberCount returns the number of per-name subscriptions for name.
func (d *Dispatcher) SubscriberCount(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[name])
}

// EventNames returns all event names with live subscriptions.
func (d *Dispatcher) EventNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.subs) == 0 {
		return nil
	}
	names := make([]string, 0, len(d.subs))
	for name := range d.subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// History returns up to limit retained events in publish order, newest last.
// A non-positive limit returns everything retained.
func (d *Dispatcher) History(limit int) []Event {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.history.recent(limit)
}

// HistoryFor returns up to limit retained events for one name.
func (d *Dispatcher) HistoryFor(name string, limit int) []Event {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.history.recentFor(name, limit)
}

// Stats returns current dispatcher statistics.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	subscribers := 0
	for _, list := range d.subs {
		subscribers += len(list)
	}
	stats := Stats{
		Subscribers: subscribers,
		Wildcards:   len(d.wildcards),
		KnownEvents: len(d.subs),
		HistorySize: d.history.size,
		Middleware:  len(d.middleware),
	}
	d.mu.RUnlock()

	stats.EventsPublished = d.eventsPublished.Load()
	stats.HandlersInvoked = d.handlersInvoked.Load()
	stats.HandlerErrors = d.handlerErrors.Load()
	stats.HandlerPanics = d.handlerPanics.Load()
	stats.MiddlewareErrors = d.middlewareErrors.Load()
	return stats
}

// Clear drops all subscriptions, wildcard subscriptions, and history.
// Middleware is untouched.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = make(map[string][]*subscription)
	d.wildcards = nil
	d.history.clear()
}

// Dispose clears the dispatcher and drops middleware. Further publishes and
// subscriptions return ErrDispatcherDisposed.
func (d *Dispatcher) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = make(map[string][]*subscription)
	d.wildcards = nil
	d.middleware = nil
	d.history.clear()
	d.disposed = true
}
