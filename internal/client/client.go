// Package client is the Go client for a running broker, used by the CLI
// subcommands. It talks plain HTTP for queries and mutations and WebSocket
// for the live event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mremehr/collab-core/pkg/collab"
)

// Client issues requests against one broker.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the broker at baseURL, e.g.
// "http://127.0.0.1:7878". A trailing slash is tolerated.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	var resp collab.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("broker reported not ok")
	}
	return nil
}

// State fetches the full state snapshot.
func (c *Client) State(ctx context.Context) (collab.Snapshot, error) {
	var snapshot collab.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/state", nil, &snapshot)
	return snapshot, err
}

// PostChat creates a chat message.
func (c *Client) PostChat(ctx context.Context, user, text string) (collab.ChatMessage, error) {
	var message collab.ChatMessage
	err := c.do(ctx, http.MethodPost, "/api/chat", collab.CreateChatRequest{User: user, Text: text}, &message)
	return message, err
}

// CreateTask creates a task. An empty assignee means unassigned.
func (c *Client) CreateTask(ctx context.Context, title, assignee string) (collab.TaskItem, error) {
	request := collab.CreateTaskRequest{Title: title}
	if assignee != "" {
		request.Assignee = &assignee
	}
	var task collab.TaskItem
	err := c.do(ctx, http.MethodPost, "/api/tasks", request, &task)
	return task, err
}

// SetTaskStatus moves a task to a new status.
func (c *Client) SetTaskStatus(ctx context.Context, id uint64, status collab.TaskStatus) (collab.TaskItem, error) {
	var task collab.TaskItem
	path := fmt.Sprintf("/api/tasks/%d/status", id)
	err := c.do(ctx, http.MethodPatch, path, collab.UpdateTaskStatusRequest{Status: status}, &task)
	return task, err
}

// SetPresence creates or replaces a presence record.
func (c *Client) SetPresence(ctx context.Context, user string, status collab.PresenceStatus) (collab.Presence, error) {
	var record collab.Presence
	err := c.do(ctx, http.MethodPost, "/api/presence", collab.SetPresenceRequest{User: user, Status: status}, &record)
	return record, err
}

// do issues one request and decodes the JSON response into out. Error
// responses are translated back into collab errors so callers can use
// collab.IsInvalid / collab.IsNotFound.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		return decodeError(response)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func decodeError(response *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return fmt.Errorf("broker returned HTTP %d", response.StatusCode)
	}
	switch collab.ErrorKind(body.Error) {
	case collab.ErrorKindInvalid:
		return collab.Invalidf("%s", body.Message)
	case collab.ErrorKindNotFound:
		return collab.NotFoundf("%s", body.Message)
	default:
		return fmt.Errorf("%s", body.Message)
	}
}

// WebSocketURL converts the client's base URL to its /ws endpoint.
func (c *Client) WebSocketURL() (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid broker URL %q: %w", c.baseURL, err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = "/ws"
	return parsed.String(), nil
}
