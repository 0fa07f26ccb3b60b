package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// WireEvent is one frame from the /ws stream, with the payload left raw so
// callers can decode it against the concrete type named by Type.
type WireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Subscription is a live /ws connection. Events are delivered on Events()
// until the connection drops or Close is called; the first event is always
// the snapshot.
type Subscription struct {
	conn   *websocket.Conn
	events chan WireEvent
	errs   chan error
}

// Events returns the stream of decoded frames. Closed when the session
// ends.
func (s *Subscription) Events() <-chan WireEvent {
	return s.events
}

// Errors reports the read error that ended the session, if any.
func (s *Subscription) Errors() <-chan error {
	return s.errs
}

// Close tears down the connection. Implements io.Closer.
func (s *Subscription) Close() error {
	return s.conn.Close()
}

// Watch connects to the broker's event stream. The caller must Close the
// subscription; context cancellation also ends it.
func (c *Client) Watch(ctx context.Context) (*Subscription, error) {
	wsURL, err := c.WebSocketURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}

	sub := &Subscription{
		conn:   conn,
		events: make(chan WireEvent, 16),
		errs:   make(chan error, 1),
	}

	go func() {
		defer close(sub.events)
		for {
			var event WireEvent
			if err := conn.ReadJSON(&event); err != nil {
				if ctx.Err() == nil {
					sub.errs <- err
				}
				return
			}
			select {
			case sub.events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Tie the connection's lifetime to the context so a cancelled watch
	// unblocks the read loop.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return sub, nil
}
