// Package hub fans stored log entries out to live subscribers. The
// ingest path publishes every entry it writes; each SSE handler holds
// one buffered subscription. Slow consumers lose entries rather than
// stalling ingest.
package hub

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/tasklight/tasklight/internal/model"
)

const subscriberBuffer = 256

// Hub broadcasts entries to all current subscribers. Safe for
// concurrent use.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan model.LogEntry
	nextID int
	closed bool

	dropped atomic.Int64
}

func New() *Hub {
	return &Hub{subs: make(map[int]chan model.LogEntry)}
}

// Subscribe registers a buffered subscription and returns the channel
// plus a cancel func that unregisters and closes it. Cancel is safe to
// call more than once. After Close the returned channel is already
// closed.
func (h *Hub) Subscribe() (<-chan model.LogEntry, func()) {
	ch := make(chan model.LogEntry, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers e to every subscriber, dropping it for any whose
// buffer is full.
func (h *Hub) Publish(e model.LogEntry) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			if n := h.dropped.Add(1); n%100 == 1 {
				log.Printf("hub: dropping entries for slow consumer (total dropped: %d)", n)
			}
		}
	}
}

// Dropped is the total count of entries lost to slow consumers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers is the current subscription count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends all subscriptions. Further publishes are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
