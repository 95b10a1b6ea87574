package pubsub

import (
	"context"
	"sync"
	"time"
)

const defaultBuffer = 64

// Broker delivers published events to every active subscriber. Delivery
// is best effort: a subscriber that stops draining its channel loses
// events rather than stalling the publisher.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[int]chan Event[T]
	nextID int
	closed bool
	buf    int
}

// NewBroker creates a broker whose subscriber channels buffer 64 events.
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBuffer)
}

// NewBrokerWithBuffer creates a broker with the given per-subscriber
// channel capacity.
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	return &Broker[T]{
		subs: make(map[int]chan Event[T]),
		buf:  size,
	}
}

// Subscribe registers a new subscriber and returns its channel. The
// subscription ends when ctx is cancelled or the broker closes; either
// way the channel is closed. Subscribing to a closed broker returns an
// already-closed channel.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Event[T], b.buf)
	b.subs[id] = ch

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()

	return ch
}

func (b *Broker[T]) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Close already tore every channel down.
	if b.closed {
		return
	}
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish stamps the payload and hands it to every subscriber whose
// channel has room. Publishing on a closed broker is a no-op.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Full subscriber: the event is lost to it.
		}
	}
}

// Close ends every subscription and closes their channels. Safe to call
// more than once.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
