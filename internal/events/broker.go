package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "events_dropped_total",
	Help: "Events dropped because a subscriber buffer was full.",
})

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// Broker fans events out to in-process subscribers.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID atomic.Uint64
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]*Subscription)}
}

// Subscription receives events visible to its user on C until Close.
type Subscription struct {
	C <-chan Event

	id     uint64
	userID string
	ch     chan Event
	broker *Broker
	once   sync.Once
}

// Subscribe registers a subscriber bound to userID ("" for anonymous).
func (b *Broker) Subscribe(userID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, id: b.nextID.Add(1), userID: userID, ch: ch, broker: b}
	b.mu.Lock()
	b.subs[s.id] = s
	b.mu.Unlock()
	return s
}

// Close unregisters the subscription and closes C. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s.id)
		s.broker.mu.Unlock()
		close(s.ch)
	})
}

// Publish delivers e to every matching subscriber without blocking.
func (b *Broker) Publish(_ context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !e.VisibleTo(s.userID) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			droppedEvents.Inc()
		}
	}
}

// Len returns the number of live subscriptions.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
