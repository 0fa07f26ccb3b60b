package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mremehr/collab-core/pkg/collab"
)

var upgrader = websocket.Upgrader{
	// Peers are local tools; the HTTP surface is already wide open.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket attaches the peer to the event bus and streams state to
// it: one snapshot frame first, then every subsequent event in publish
// order. Incoming text frames are read and discarded; the session ends
// when the peer disconnects or the subscription terminates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		log.Printf("[Server] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	snapshot, subscription := s.store.Attach()
	defer subscription.Close()

	if err := conn.WriteJSON(collab.Event{Type: collab.EventSnapshot, Data: snapshot}); err != nil {
		return
	}

	// Drain the peer so close and ping control frames are processed; the
	// default ping handler answers with a pong. Any read error means the
	// peer is gone.
	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-peerGone:
			return
		case event, ok := <-subscription.Events():
			if !ok {
				if subscription.Lagged() {
					log.Printf("[Server] websocket subscriber %s lagged, closing", subscription.ID())
					message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "lagged")
					_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
				}
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
