package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recvEvent pulls one event off a subscription or fails the test.
func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "subscription closed unexpectedly")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	first := bus.Subscribe()
	second := bus.Subscribe()
	defer first.Close()
	defer second.Close()

	bus.Publish([]Event{{Type: EventChatCreated, Data: "one"}})

	for _, sub := range []*Subscription{first, second} {
		event := recvEvent(t, sub)
		assert.Equal(t, EventChatCreated, event.Type)
		assert.Equal(t, "one", event.Data)
	}
}

func TestBusFIFOAcrossBatches(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish([]Event{{Data: 1}, {Data: 2}})
	bus.Publish([]Event{{Data: 3}})

	for want := 1; want <= 3; want++ {
		assert.Equal(t, want, recvEvent(t, sub).Data)
	}
}

func TestBusEmptyBatchIsNoop(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish(nil)
	bus.Publish([]Event{})

	select {
	case <-sub.Events():
		t.Fatal("no event expected")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusDropsLaggedSubscriber(t *testing.T) {
	bus := NewBus()
	slow := bus.Subscribe()
	fast := bus.Subscribe()
	defer fast.Close()

	// Keep fast drained after every publish; never read from slow.
	total := SubscriberBufferSize + 10
	for i := 0; i < total; i++ {
		bus.Publish([]Event{{Data: i}})
		assert.Equal(t, i, recvEvent(t, fast).Data)
	}

	// Slow subscriber is gone; its buffered prefix is still readable, then
	// the channel closes with the lagged marker set.
	drained := 0
	for range slow.Events() {
		drained++
	}
	assert.Equal(t, SubscriberBufferSize, drained)
	assert.True(t, slow.Lagged())
	assert.Equal(t, 1, bus.SubscriberCount())
	assert.False(t, fast.Lagged())
}

func TestSubscriptionClose(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "close must be idempotent")
	assert.Equal(t, 0, bus.SubscriberCount())
	assert.False(t, sub.Lagged())

	// Publishing after close must not panic or deliver.
	bus.Publish([]Event{{Data: "late"}})
	_, open := <-sub.Events()
	assert.False(t, open)
}
