package dispatch

import (
	"context"
	"time"
)

// WaitFor blocks until the next publish of the named event, the timeout
// elapses, or ctx is cancelled. It registers a transient once-subscription
// that is removed on every exit path. Timeout is the dispatcher's only
// cancellation primitive besides ctx itself.
func (d *Dispatcher) WaitFor(ctx context.Context, name string, timeout time.Duration) (Event, error) {
	ch := make(chan Event, 1)
	_, cancel, err := d.SubscribeOnce(name, func(_ context.Context, ev Event) (any, error) {
		ch <- ev
		return nil, nil
	})
	if err != nil {
		return Event{}, err
	}
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-ch:
		return ev, nil
	case <-timer.C:
		return Event{}, ErrWaitTimeout
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// PublishIf publishes only when the predicate accepts the payload. The
// second return value reports whether a publish happened; when false the
// dispatcher is untouched.
func (d *Dispatcher) PublishIf(ctx context.Context, name string, payload any, pred Predicate, opts ...PublishOption) ([]Result, bool, error) {
	if pred != nil && !pred(payload) {
		return nil, false, nil
	}
	results, err := d.Publish(ctx, name, payload, opts...)
	if err != nil {
		return nil, false, err
	}
	return results, true, nil
}

// PublishChain publishes the steps strictly in order, awaiting each step's
// full delivery before starting the next, pausing Delay before a step when
// set. It returns per-step result lists. A cancelled context stops the chain
// between steps.
func (d *Dispatcher) PublishChain(ctx context.Context, steps []ChainStep) ([][]Result, error) {
	out := make([][]Result, 0, len(steps))
	for _, step := range steps {
		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return out, ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return out, err
		}

		results, err := d.Publish(ctx, step.Name, step.Payload)
		if err != nil {
			return out, err
		}
		out = append(out, results)
	}
	return out, nil
}
