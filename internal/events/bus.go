// Package events fans audit events out to live subscribers (the admin
// websocket feed). Delivery is best-effort: a slow subscriber drops
// events rather than stalling the publisher.
package events

import (
	"sync"

	"github.com/avoronkov/vcadmin/internal/audit"
)

const subscriberBuffer = 16

// Bus is an in-process broadcast channel for audit events.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan audit.Event
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan audit.Event)}
}

// Subscribe registers a new subscriber. The returned cancel function
// must be called when the subscriber goes away.
func (b *Bus) Subscribe() (<-chan audit.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan audit.Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with room in its
// buffer.
func (b *Bus) Publish(evt audit.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
