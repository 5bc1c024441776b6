package dispatch

import "sync/atomic"

// SubscriptionOption configures a subscription at registration time.
type SubscriptionOption func(*subscription)

// WithPriority sets the subscription priority. Higher values run first;
// subscriptions with equal priority run in registration order.
func WithPriority(p int) SubscriptionOption {
	return func(s *subscription) {
		s.priority = p
	}
}

// WithOnce marks the subscription to be removed after its first delivery.
func WithOnce() SubscriptionOption {
	return func(s *subscription) {
		s.once = true
	}
}

// subscription is one registered (name, handler, priority, once) tuple.
// It is owned exclusively by the dispatcher's per-name list.
type subscription struct {
	id      string
	name    string
	handler Handler

	// pattern is set for match subscriptions; delivered with the wildcard
	// pass when the event name matches the glob.
	pattern string

	priority int
	seq      uint64
	once     bool

	// fired guards once subscriptions against double delivery when a
	// handler re-publishes the same event re-entrantly.
	fired atomic.Bool
}

// claim reserves a once subscription for delivery. It returns false when the
// subscription has already fired. Non-once subscriptions always claim.
func (s *subscription) claim() bool {
	if !s.once {
		return true
	}
	return s.fired.CompareAndSwap(false, true)
}
