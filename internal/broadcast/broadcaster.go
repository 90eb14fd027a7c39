// Package broadcast fans values out to any number of subscribers without
// letting a slow subscriber stall the publisher.
package broadcast

import (
	"sync"
	"sync/atomic"
)

const DefaultBuffer = 100

type Broadcaster[T any] struct {
	subscribers map[uint64]chan T
	nextID      atomic.Uint64
	buffer      int
	closed      bool
	mu          sync.RWMutex
}

// New returns a Broadcaster whose subscriber channels hold up to buffer
// undelivered values. A non-positive buffer uses DefaultBuffer.
func New[T any](buffer int) *Broadcaster[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster[T]{
		subscribers: make(map[uint64]chan T),
		buffer:      buffer,
	}
}

// Subscribe registers a new subscriber. After Close the returned channel is
// already closed.
func (b *Broadcaster[T]) Subscribe() (uint64, <-chan T) {
	id := b.nextID.Add(1)
	ch := make(chan T, b.buffer)

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subscribers[id] = ch
	}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster[T]) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster[T]) Broadcast(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- v:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing readers to exit gracefully
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
