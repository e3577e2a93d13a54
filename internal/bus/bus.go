// Package bus implements the cloneable multi-producer multi-consumer
// broadcast described in spec §4.A. It generalizes the teacher's
// internal/pty.Hub client registration loop (register/unregister channels
// guarded by a run goroutine) to an arbitrary payload type, and adds the
// per-subscriber loop-back suppression Hub never needed because it only
// ever had one producer (the PTY read loop).
package bus

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned by Subscribe once the bus has been shut down.
var ErrClosed = errors.New("bus: closed")

// ConsumerID uniquely identifies a subscriber for the lifetime of the bus.
type ConsumerID string

// Consumer is an independent receive endpoint backed by a buffered channel
// of 4096 entries. Two consumers never see each other's queues, but while a
// consumer's channel is full, Publish blocks on it, which also delays
// delivery to the subscribers after it.
type Consumer[T any] struct {
	ID ConsumerID
	C  <-chan T
}

type subscriber[T any] struct {
	id ConsumerID
	ch chan T
}

// Bus is a typed broadcast channel. The zero value is not usable; use New.
type Bus[T any] struct {
	mu          sync.RWMutex
	subscribers map[ConsumerID]*subscriber[T]
	closed      bool
}

// New creates an empty bus for payload type T.
func New[T any]() *Bus[T] {
	return &Bus[T]{
		subscribers: make(map[ConsumerID]*subscriber[T]),
	}
}

// Subscribe registers a new consumer with an independent, unbounded-ish
// (large buffered) receive channel. Fails only once the bus is shut down.
func (b *Bus[T]) Subscribe() (Consumer[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Consumer[T]{}, ErrClosed
	}

	sub := &subscriber[T]{
		id: ConsumerID(uuid.NewString()),
		ch: make(chan T, 4096),
	}
	b.subscribers[sub.id] = sub

	return Consumer[T]{ID: sub.id, C: sub.ch}, nil
}

// Unsubscribe removes a consumer. Its channel is never closed: a Publish
// already mid-flight may have snapshotted this subscriber and still be
// sending to it, so closing here could race a send and panic. The consumer
// simply stops being included in future publishes; callers that need a
// shutdown signal should select on their own done channel alongside C.
// Safe to call more than once for the same id.
func (b *Bus[T]) Unsubscribe(id ConsumerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}

// Publish delivers a copy of value to every subscriber, with no exclusion
// (see PublishExcept).
func (b *Bus[T]) Publish(value T) {
	b.publish(value, "")
}

// PublishExcept delivers value to every subscriber except the one with the
// given id. Used so a component that both publishes and subscribes to the
// same topic (the plugin engine injecting tx frames) does not observe its
// own emissions.
func (b *Bus[T]) PublishExcept(value T, except ConsumerID) {
	b.publish(value, except)
}

func (b *Bus[T]) publish(value T, except ConsumerID) {
	// Snapshot the subscriber list under the lock, then send outside it:
	// delivery is lossless (a send to a full subscriber channel waits until
	// it drains) but a blocked send must never hold the lock, or one
	// stuck consumer would wedge Subscribe/Unsubscribe for everyone else.
	b.mu.RLock()
	targets := make([]*subscriber[T], 0, len(b.subscribers))
	for id, sub := range b.subscribers {
		if except != "" && id == except {
			continue
		}
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.ch <- value
	}
}

// Shutdown drops every subscriber and fails future Subscribe calls. As with
// Unsubscribe, subscriber channels are not closed — see Unsubscribe.
func (b *Bus[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.subscribers = make(map[ConsumerID]*subscriber[T])
}

// SubscriberCount reports the number of live subscribers (diagnostics only).
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
