// Package feed publishes the live item collection as a stream of immutable
// full snapshots, newest item first.
package feed

import (
	"sync"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// Hub fans snapshots out to subscribers. Each published snapshot is copied
// once and shared read-only by every subscriber, so callbacks must not modify
// the slice they receive.
type Hub struct {
	// deliver serializes publishing so every subscriber sees snapshots in
	// publish order.
	deliver sync.Mutex

	mu     sync.Mutex
	subs   map[uint64]func([]domain.Item)
	next   uint64
	latest []domain.Item
	primed bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]func([]domain.Item))}
}

// Subscribe registers fn and, if a snapshot has already been published,
// calls fn with it before returning. Callbacks run on the publishing
// goroutine; fn must not call Subscribe or Publish.
func (h *Hub) Subscribe(fn func([]domain.Item)) (unsubscribe func()) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	latest, primed := h.latest, h.primed
	h.mu.Unlock()

	if primed {
		fn(latest)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish replaces the current snapshot and delivers it to all subscribers.
func (h *Hub) Publish(items []domain.Item) {
	snapshot := make([]domain.Item, len(items))
	copy(snapshot, items)

	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	h.latest, h.primed = snapshot, true
	fns := make([]func([]domain.Item), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// Snapshot returns the most recently published snapshot, or nil before the
// first publish.
func (h *Hub) Snapshot() []domain.Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
