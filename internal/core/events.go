package core

import "sync"

// EventReason says why a screen should redraw.
type EventReason string

const (
	// ReasonParams means the screen's query key changed, e.g. a debounced
	// search was committed.
	ReasonParams EventReason = "params"
	// ReasonRefreshed means a fetch for the displayed key settled.
	ReasonRefreshed EventReason = "refreshed"
	// ReasonInvalidated means a write made the displayed data stale.
	ReasonInvalidated EventReason = "invalidated"
)

// Event tells a browser session that one of its screens should reload.
type Event struct {
	Screen string      `json:"screen"`
	Key    string      `json:"key"`
	Reason EventReason `json:"reason"`
}

// eventBuffer is the per-subscriber backlog. Events beyond it are dropped;
// a screen only needs to know that it must reload, not how many times.
const eventBuffer = 16

// EventHub fans out events to the subscribers of each session.
type EventHub struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Event
	nextID int
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[string]map[int]chan Event)}
}

// Subscribe returns a channel receiving the session's events and a function
// that closes it.
func (h *EventHub) Subscribe(session string) (<-chan Event, func()) {
	ch := make(chan Event, eventBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[session] == nil {
		h.subs[session] = make(map[int]chan Event)
	}
	h.subs[session][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[session], id)
			if len(h.subs[session]) == 0 {
				delete(h.subs, session)
			}
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber of session without blocking and
// returns how many received it.
func (h *EventHub) Publish(session string, ev Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, ch := range h.subs[session] {
		select {
		case ch <- ev:
			n++
		default:
		}
	}
	return n
}

// Subscribers returns the number of open subscriptions of session.
func (h *EventHub) Subscribers(session string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[session])
}
