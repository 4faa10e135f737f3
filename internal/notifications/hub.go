// Package notifications fans out state updates to subscribers such as the
// presentation layer.
package notifications

import (
	"errors"
	"sync"

	"statusfeed/internal/observability"

	"github.com/google/uuid"
)

const (
	// DefaultBuffer is the per-subscriber queue length.
	DefaultBuffer = 16
	// Max subscribers per hub
	maxSubscribers = 1024
)

// ErrHubClosed is returned when subscribing to a closed hub.
var ErrHubClosed = errors.New("hub closed")

// ErrTooManySubscribers is returned when the subscriber limit is reached.
var ErrTooManySubscribers = errors.New("subscriber limit reached")

// Subscriber receives published values on C until it unsubscribes or the
// hub shuts down, at which point C is closed.
type Subscriber[T any] struct {
	ID string
	C  <-chan T

	send chan T
	hub  *Hub[T]
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscriber[T]) Close() {
	s.hub.unsubscribe(s)
}

// Hub delivers every published value to all subscribers without ever
// blocking the publisher. A subscriber that falls behind loses its oldest
// queued value, so it always ends up with the latest one.
type Hub[T any] struct {
	name   string
	buffer int

	mu     sync.Mutex
	subs   map[*Subscriber[T]]struct{}
	closed bool
	logger *observability.HubLogger
}

// NewHub creates a hub. buffer <= 0 selects DefaultBuffer.
func NewHub[T any](name string, buffer int) *Hub[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub[T]{
		name:   name,
		buffer: buffer,
		subs:   make(map[*Subscriber[T]]struct{}),
		logger: observability.NewHubLogger(name),
	}
}

// Subscribe registers a new subscriber.
func (h *Hub[T]) Subscribe() (*Subscriber[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.subs) >= maxSubscribers {
		return nil, ErrTooManySubscribers
	}

	ch := make(chan T, h.buffer)
	s := &Subscriber[T]{ID: uuid.NewString(), C: ch, send: ch, hub: h}
	h.subs[s] = struct{}{}
	observability.Subscribers.WithLabelValues(h.name).Inc()
	h.logger.LogSubscribe(s.ID, len(h.subs))
	return s, nil
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish sends v to every subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		h.trySend(s, v)
	}
}

// trySend must be called with h.mu held.
func (h *Hub[T]) trySend(s *Subscriber[T], v T) {
	select {
	case s.send <- v:
		return
	default:
	}

	// Queue full: drop the oldest value to make room for the newest.
	select {
	case <-s.send:
		observability.SubscriberDrops.WithLabelValues(h.name, "coalesced").Inc()
		h.logger.LogDrop(s.ID, "coalesced")
	default:
	}
	select {
	case s.send <- v:
	default:
		observability.SubscriberDrops.WithLabelValues(h.name, "full").Inc()
		h.logger.LogDrop(s.ID, "full")
	}
}

func (h *Hub[T]) unsubscribe(s *Subscriber[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.send)
	observability.Subscribers.WithLabelValues(h.name).Dec()
	h.logger.LogUnsubscribe(s.ID, len(h.subs))
}

// Shutdown closes every subscriber and rejects new ones.
func (h *Hub[T]) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.send)
		observability.Subscribers.WithLabelValues(h.name).Dec()
	}
}
