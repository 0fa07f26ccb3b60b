package collab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatusValid(t *testing.T) {
	assert.True(t, TaskStatusTodo.Valid())
	assert.True(t, TaskStatusInProgress.Valid())
	assert.True(t, TaskStatusDone.Valid())
	assert.False(t, TaskStatus("").Valid())
	assert.False(t, TaskStatus("blocked").Valid())
}

func TestPresenceStatusValid(t *testing.T) {
	for _, status := range []PresenceStatus{PresenceStatusOnline, PresenceStatusAway, PresenceStatusBusy, PresenceStatusOffline} {
		assert.True(t, status.Valid(), "status %q", status)
	}
	assert.False(t, PresenceStatus("sleeping").Valid())
}

func TestEventWireShape(t *testing.T) {
	event := Event{
		Type: EventChatCreated,
		Data: ChatMessage{ID: 1, User: "a", Text: "hi", CreatedAtMs: 42},
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"chat.created","data":{"id":1,"user":"a","text":"hi","created_at_ms":42}}`,
		string(payload))
}

func TestTaskItemAssigneeSerialization(t *testing.T) {
	t.Run("unassigned task carries null", func(t *testing.T) {
		payload, err := json.Marshal(TaskItem{ID: 1, Title: "x", Status: TaskStatusTodo})
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"assignee":null`)
	})

	t.Run("assigned task carries the user", func(t *testing.T) {
		assignee := "b"
		payload, err := json.Marshal(TaskItem{ID: 1, Title: "x", Assignee: &assignee, Status: TaskStatusTodo})
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"assignee":"b"`)
	})
}
