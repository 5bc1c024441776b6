package dispatch

// history is a fixed-capacity ring of retained events. The oldest entry is
// evicted when a publish overflows the capacity. Not safe for concurrent use;
// the dispatcher guards it with its own mutex.
type history struct {
	entries []Event
	head    int
	size    int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &history{entries: make([]Event, capacity)}
}

// append records an event, evicting the oldest entry at capacity.
func (h *history) append(ev Event) {
	h.entries[(h.head+h.size)%len(h.entries)] = ev
	if h.size < len(h.entries) {
		h.size++
		return
	}
	h.head = (h.head + 1) % len(h.entries)
}

// recent returns up to limit entries in publish order, newest last.
// A non-positive limit returns everything retained.
func (h *history) recent(limit int) []Event {
	n := h.size
	if limit > 0 && limit < n {
		n = limit
	}
	if n == 0 {
		return nil
	}
	out := make([]Event, n)
	start := h.size - n
	for i := 0; i < n; i++ {
		out[i] = h.entries[(h.head+start+i)%len(h.entries)]
	}
	return out
}

// recentFor returns up to limit entries for one event name, newest last.
func (h *history) recentFor(name string, limit int) []Event {
	var out []Event
	for i := 0; i < h.size; i++ {
		ev := h.entries[(h.head+i)%len(h.entries)]
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out
}

func (h *history) clear() {
	h.head = 0
	h.size = 0
}
