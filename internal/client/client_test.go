package client

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mremehr/collab-core/internal/server"
	"github.com/mremehr/collab-core/pkg/collab"
)

func setupTestBroker(t *testing.T) (*Client, *collab.Store) {
	t.Helper()
	store := collab.NewStoreWithClock(collab.NewManualClock(1_000_000))
	ts := httptest.NewServer(server.New(store, "").Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL), store
}

func TestHealth(t *testing.T) {
	c, _ := setupTestBroker(t)
	assert.NoError(t, c.Health(context.Background()))
}

func TestHealthUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1")
	assert.Error(t, c.Health(context.Background()))
}

func TestPostChat(t *testing.T) {
	c, _ := setupTestBroker(t)

	message, err := c.PostChat(context.Background(), "a", "hi")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), message.ID)
	assert.Equal(t, "hi", message.Text)
}

func TestTaskLifecycle(t *testing.T) {
	c, _ := setupTestBroker(t)
	ctx := context.Background()

	task, err := c.CreateTask(ctx, "ship it", "b")
	require.NoError(t, err)
	require.NotNil(t, task.Assignee)
	assert.Equal(t, "b", *task.Assignee)

	updated, err := c.SetTaskStatus(ctx, task.ID, collab.TaskStatusDone)
	require.NoError(t, err)
	assert.Equal(t, collab.TaskStatusDone, updated.Status)
}

func TestErrorTranslation(t *testing.T) {
	c, _ := setupTestBroker(t)
	ctx := context.Background()

	t.Run("validation failures come back invalid", func(t *testing.T) {
		_, err := c.PostChat(ctx, "", "x")
		assert.True(t, collab.IsInvalid(err))
	})

	t.Run("missing task comes back not_found", func(t *testing.T) {
		_, err := c.SetTaskStatus(ctx, 42, collab.TaskStatusDone)
		assert.True(t, collab.IsNotFound(err))
	})
}

func TestState(t *testing.T) {
	c, store := setupTestBroker(t)

	_, err := store.CreateChat("a", "hi")
	require.NoError(t, err)

	snapshot, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Chat, 1)
}

func TestWebSocketURL(t *testing.T) {
	url, err := New("http://127.0.0.1:7878").WebSocketURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:7878/ws", url)

	url, err = New("https://collab.example.com/").WebSocketURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://collab.example.com/ws", url)

	_, err = New("ftp://nope").WebSocketURL()
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	c, store := setupTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := c.Watch(ctx)
	require.NoError(t, err)
	defer sub.Close()

	// Snapshot arrives first.
	select {
	case event := <-sub.Events():
		require.Equal(t, "snapshot", event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}

	_, err = store.CreateChat("a", "live")
	require.NoError(t, err)

	select {
	case event := <-sub.Events():
		require.Equal(t, "chat.created", event.Type)
		var message collab.ChatMessage
		require.NoError(t, json.Unmarshal(event.Data, &message))
		assert.Equal(t, "live", message.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live event")
	}
}
