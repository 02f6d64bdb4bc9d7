package notify

import (
	"sync"

	"github.com/Ardhiffamada1/PointOfSale/pkg/contracts"
)

// Hub fans events out to in-process subscribers (the SSE stream). Slow
// subscribers drop events rather than block the relay.
type Hub struct {
	mu   sync.Mutex
	subs map[chan contracts.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan contracts.Event]struct{})}
}

func (h *Hub) Subscribe() chan contracts.Event {
	ch := make(chan contracts.Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan contracts.Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Broadcast(evt contracts.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
