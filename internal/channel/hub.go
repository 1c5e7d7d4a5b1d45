package channel

import (
	"sync"

	"orderflow/logger"
)

// HubStats counts publish outcomes across all subscribers of a hub.
type HubStats struct {
	Published int64
	Delivered int64
	Dropped   int64
}

// Hub is a typed fan-out channel for one canonical event kind. Every
// subscriber gets its own buffered channel; Publish never blocks the
// producer, a subscriber that falls behind loses events and the drop is
// counted and logged.
type Hub[T any] struct {
	name    string
	bufSize int

	mu    sync.RWMutex
	subs  []chan T
	stats HubStats

	log *logger.Log
}

// NewHub creates a hub whose subscriber channels hold bufSize events.
func NewHub[T any](name string, bufSize int) *Hub[T] {
	if bufSize <= 0 {
		bufSize = 1
	}
	return &Hub[T]{
		name:    name,
		bufSize: bufSize,
		log:     logger.GetLogger(),
	}
}

// Subscribe registers a new independent consumer and returns its channel.
// Delivery order is preserved per subscriber; nothing is guaranteed
// across different hubs.
func (h *Hub[T]) Subscribe() <-chan T {
	ch := make(chan T, h.bufSize)
	h.mu.Lock()
	h.subs = append(h.subs, ch)
	h.mu.Unlock()
	return ch
}

// Publish delivers the event to every subscriber without blocking.
func (h *Hub[T]) Publish(event T) {
	h.mu.Lock()
	h.stats.Published++
	for _, ch := range h.subs {
		select {
		case ch <- event:
			h.stats.Delivered++
		default:
			h.stats.Dropped++
			h.log.WithComponent(h.name + "_hub").Warn("subscriber buffer full, dropping event")
		}
	}
	h.mu.Unlock()
}

// Stats returns a copy of the hub counters.
func (h *Hub[T]) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// Close closes all subscriber channels. Publish must not be called after
// Close.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	for _, ch := range h.subs {
		close(ch)
	}
	h.subs = nil
	h.mu.Unlock()
}
