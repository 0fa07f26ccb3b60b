package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mremehr/collab-core/pkg/collab"
)

func setupTestBridge(t *testing.T) (*Bridge, *collab.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	store := collab.NewStoreWithClock(collab.NewManualClock(1_000_000))
	b, err := New(store, &redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	return b, store, mr
}

func TestNew(t *testing.T) {
	t.Run("creates bridge successfully", func(t *testing.T) {
		b, _, _ := setupTestBridge(t)
		assert.NotNil(t, b)
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		store := collab.NewStore()
		_, err := New(store, &redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
	})
}

func TestEventsChannel(t *testing.T) {
	assert.Equal(t, "collab:test:events", EventsChannel("test"))
	assert.Equal(t, "collab:prod:events", EventsChannel("prod"))
}

func TestPing(t *testing.T) {
	b, _, _ := setupTestBridge(t)
	assert.NoError(t, b.Ping(context.Background()))
}

func TestMirrorsEventsToRedis(t *testing.T) {
	b, store, mr := setupTestBridge(t)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := rdb.Subscribe(ctx, EventsChannel("test"))
	t.Cleanup(func() { pubsub.Close() })
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx)
	}()

	// Wait until the bridge has attached to the bus before mutating.
	require.Eventually(t, func() bool {
		return store.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	message, err := store.CreateChat("a", "hi")
	require.NoError(t, err)

	received, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var event struct {
		Type string             `json:"type"`
		Data collab.ChatMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(received.Payload), &event))
	assert.Equal(t, "chat.created", event.Type)
	assert.Equal(t, message.ID, event.Data.ID)
	assert.Equal(t, "hi", event.Data.Text)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop after cancellation")
	}
}

func TestMirrorPreservesBatchOrder(t *testing.T) {
	b, store, mr := setupTestBridge(t)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := rdb.Subscribe(ctx, EventsChannel("test"))
	t.Cleanup(func() { pubsub.Close() })
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	go b.Run(ctx)
	require.Eventually(t, func() bool {
		return store.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, created, err := store.IngestFrame(collab.FrameInput{Path: "/frames/a.png", Filename: "a.png"})
	require.NoError(t, err)
	require.True(t, created)

	first, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)
	second, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)

	assert.Contains(t, first.Payload, `"observer.frame"`)
	assert.Contains(t, second.Payload, `"timeline.created"`)
}
