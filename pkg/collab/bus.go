package collab

import (
	"sync"

	"github.com/google/uuid"
)

// SubscriberBufferSize is the per-subscriber event buffer capacity. A
// subscriber that falls this far behind the publishers is dropped rather
// than allowed to stall them.
const SubscriberBufferSize = 256

// Bus fans published events out to every attached subscriber. Delivery is
// FIFO per subscriber and preserves order within and across batches; a
// publish returns only once every live subscriber has either buffered the
// batch or been marked lagged.
//
// Bus methods are safe for concurrent use. The store calls Publish while
// holding its state mutex, which is what makes the snapshot/live partition
// of Store.Attach exact; standalone use of the bus carries no such
// guarantee beyond publish ordering.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string]*Subscription
}

// NewBus creates an empty bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]*Subscription)}
}

// Subscribe registers a new subscriber and returns its subscription. The
// subscriber receives every event published after this call, in order,
// until it closes the subscription or overflows its buffer.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		id:     uuid.New().String(),
		bus:    b,
		events: make(chan Event, SubscriberBufferSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sub.id] = sub
	return sub
}

// Publish appends a batch of events to the logical event log and delivers
// it to all current subscribers. The batch is enqueued contiguously per
// subscriber: no other publish can interleave inside it. A subscriber whose
// buffer cannot absorb the batch is dropped with a terminal lagged marker;
// the publisher never blocks.
func (b *Bus) Publish(batch []Event) {
	if len(batch) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		deliverLocked(sub, batch)
	}
}

// deliverLocked enqueues a batch into one subscriber's buffer. On the first
// event that does not fit, the remainder of the stream can never be
// delivered gap-free, so the subscription is closed as lagged.
func deliverLocked(sub *Subscription, batch []Event) {
	for _, event := range batch {
		select {
		case sub.events <- event:
		default:
			sub.closeLocked(true)
			return
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Subscription is one subscriber's live event stream. Events are consumed
// from Events(); the channel is closed when the subscription ends, either
// via Close or because the subscriber lagged.
type Subscription struct {
	id     string
	bus    *Bus
	events chan Event

	// closed and lagged are guarded by bus.mu.
	closed bool
	lagged bool
}

// ID returns the subscriber's unique identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Events returns the channel of live events. The channel is closed when
// the subscription terminates; check Lagged to distinguish an overflow
// drop from a deliberate Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Lagged reports whether the subscription was terminated because its
// buffer overflowed. Meaningful once the Events channel has been closed.
func (s *Subscription) Lagged() bool {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.lagged
}

// Close detaches the subscription from the bus and closes the events
// channel. Safe to call more than once. Implements io.Closer.
func (s *Subscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.closeLocked(false)
	return nil
}

// closeLocked terminates the subscription. Caller must hold bus.mu.
func (s *Subscription) closeLocked(lagged bool) {
	if s.closed {
		return
	}
	s.closed = true
	s.lagged = lagged
	delete(s.bus.subscribers, s.id)
	close(s.events)
}
