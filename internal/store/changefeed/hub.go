// Package changefeed implements the Exchange repository's broadcast
// channel: an advisory, at-least-once, lossy-acceptable wake-up signal sent
// to the scheduler after a committed administrative write (create/delete).
//
// Grounded on the teacher's graph.SafeResidualGraph read/write-lock wrapper
// pattern (services/solver-svc/internal/graph/residual.go), generalized
// from "one shared graph behind a mutex" to "one shared fan-out list of
// subscriber channels behind a mutex" — the same shape, a different payload.
package changefeed

import "sync"

// Event is the payload delivered to subscribers. Per spec.md §4.4/§9, it
// carries no data beyond "something changed" — subscribers always re-read
// canonical state rather than trusting the event's contents.
type Event struct{}

// bufferSize bounds each subscriber's channel so a slow or absent consumer
// cannot block Publish; losses are acceptable (spec.md §5 "Shared-resource
// policy").
const bufferSize = 1

// Hub is a multi-producer, multi-consumer broadcast point. Zero value is
// not usable; construct with NewHub.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub returns an empty, ready-to-use Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function the caller must call when done listening.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, bufferSize)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish delivers an Event to every current subscriber. A subscriber whose
// buffer is already full is skipped (non-blocking send) — the
// default-sleep safety net in the scheduler's main loop (spec.md §4.7)
// covers any event lost this way.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports the current number of live subscribers. Intended
// for diagnostics/metrics, not control flow.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
