package shell

import (
	"sync"

	"github.com/openshelf/circulation-go/core"
)

// DefaultSubscriberBuffer is the channel buffer used when a subscriber does
// not specify one.
const DefaultSubscriberBuffer = 64

// EventPublisher is what the managers publish domain events through.
type EventPublisher interface {
	Publish(events ...core.DomainEvent)
}

// FanOutBus delivers domain events to all subscribers. Delivery is
// fire-and-forget: publishing never blocks the writing manager, and a
// subscriber whose buffer is full misses the event. Subscribers that must
// not act on stale state read the inventory store, not the bus.
type FanOutBus struct {
	mu          sync.RWMutex
	subscribers map[int]chan core.DomainEvent
	nextID      int
	closed      bool
}

// NewFanOutBus creates an empty FanOutBus.
func NewFanOutBus() *FanOutBus {
	return &FanOutBus{
		subscribers: make(map[int]chan core.DomainEvent),
	}
}

// Subscribe registers a new subscriber with the given channel buffer and
// returns the event channel plus a cancel function. Cancel closes the
// channel and removes the subscription; it is safe to call more than once.
func (b *FanOutBus) Subscribe(buffer int) (<-chan core.DomainEvent, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	events := make(chan core.DomainEvent, buffer)

	if b.closed {
		close(events)
		return events, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = events

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if subscriber, found := b.subscribers[id]; found {
				delete(b.subscribers, id)
				close(subscriber)
			}
		})
	}

	return events, cancel
}

// Publish delivers the events to every subscriber without blocking.
// A full subscriber buffer drops the event for that subscriber only.
func (b *FanOutBus) Publish(events ...core.DomainEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, event := range events {
		for _, subscriber := range b.subscribers {
			select {
			case subscriber <- event:
			default: // subscriber too slow, drop
			}
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
// Publishing after Close is a no-op.
func (b *FanOutBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for id, subscriber := range b.subscribers {
		delete(b.subscribers, id)
		close(subscriber)
	}
}
