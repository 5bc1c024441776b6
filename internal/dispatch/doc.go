// Package dispatch provides the application's publish/subscribe hub.
//
// Components register interest in named events and producers publish them
// without either side holding a reference to the other. Delivery follows a
// strict contract:
//
//   - Per-name subscribers run in descending priority order; equal
//     priorities run in registration order.
//   - A once subscription is removed before the next subscriber of the same
//     dispatch runs, and never fires twice even when a handler re-publishes
//     the same event.
//   - Wildcard and pattern subscribers run after all per-name subscribers,
//     in registration order.
//   - A failing or panicking handler is logged and recorded in its Result;
//     delivery always continues to the remaining subscribers.
//   - Middleware stages transform the event before delivery; a failing
//     stage is skipped and the event passes through unchanged.
//
// Every publish retains its event in a bounded FIFO history ring for
// diagnostics and for WaitFor, the dispatcher's only blocking primitive.
//
// Basic usage:
//
//	d := dispatch.New()
//	_, cancel, _ := d.Subscribe("order.simulated", func(ctx context.Context, ev dispatch.Event) (any, error) {
//	    return nil, refreshDashboard(ctx, ev.Payload)
//	}, dispatch.WithPriority(10))
//	defer cancel()
//
//	results, err := d.Publish(ctx, "order.simulated", sim)
//
// Waiting for a future event with a timeout:
//
//	ev, err := d.WaitFor(ctx, "masterdata.changed", 2*time.Second)
//	if errors.Is(err, dispatch.ErrWaitTimeout) {
//	    // no change arrived in time
//	}
package dispatch
