package app

import (
	"sync"

	"olympia-live-service/internal/domain"
)

// Hub fans committed change events out to in-process observers. Subscribers
// get the full firehose; scoping to a session is the observer's job (its
// reconciliation guard filters by entity).
type Hub struct {
	mu   sync.RWMutex
	subs map[chan domain.ChangeEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan domain.ChangeEvent]struct{})}
}

// Subscribe returns a buffered event channel and a cancel function the caller
// must invoke to avoid leaks.
func (h *Hub) Subscribe() (<-chan domain.ChangeEvent, func()) {
	ch := make(chan domain.ChangeEvent, 16)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber. A full subscriber buffer sheds its
// oldest event so a slow observer cannot block broadcast; the guard's
// high-water mark makes the resulting gap safe to skip.
func (h *Hub) Publish(ev domain.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
