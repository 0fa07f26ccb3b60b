// Package server is the HTTP and WebSocket boundary of the broker. It is a
// pure translation layer: parse and validate the wire format, call the
// store, translate the result or error back. No state lives here.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/mremehr/collab-core/pkg/collab"
)

// Server serves the collaboration API over HTTP and upgrades /ws to the
// event stream.
type Server struct {
	store      *collab.Store
	bind       string
	httpServer *http.Server
}

// New creates a server for the given store, listening on bind once Start
// is called.
func New(store *collab.Store, bind string) *Server {
	return &Server{store: store, bind: bind}
}

// Handler returns the full route table wrapped in the CORS middleware.
// Exposed separately from Start so tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/chat", s.handleListChat)
	mux.HandleFunc("POST /api/chat", s.handleCreateChat)
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("PATCH /api/tasks/{id}/status", s.handleSetTaskStatus)
	mux.HandleFunc("GET /api/timeline", s.handleListTimeline)
	mux.HandleFunc("POST /api/timeline", s.handleCreateTimeline)
	mux.HandleFunc("GET /api/presence", s.handleListPresence)
	mux.HandleFunc("POST /api/presence", s.handleSetPresence)
	mux.HandleFunc("GET /api/observer/frames", s.handleListFrames)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return withCORS(mux)
}

// Start begins serving in the background. Returns once the listener setup
// has been handed to the runtime; a failed listen is logged, not returned.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.bind,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Server] listener failed: %v", err)
		}
	}()

	log.Printf("[Server] listening on %s", s.bind)
	return nil
}

// Shutdown gracefully stops the HTTP server. Open WebSocket sessions are
// closed by their handlers when their connections drop.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// withCORS allows any origin on every route. Peers are local tools and
// browser frontends; the broker has no authentication to protect.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, collab.HealthResponse{OK: true})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleListChat(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListChat())
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var body collab.CreateChatRequest
	if !decodeBody(w, r, &body) {
		return
	}
	message, err := s.store.CreateChat(body.User, body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message)
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListTasks())
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body collab.CreateTaskRequest
	if !decodeBody(w, r, &body) {
		return
	}
	task, err := s.store.CreateTask(body.Title, body.Assignee)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleSetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, collab.Invalidf("task id must be an integer"))
		return
	}
	var body collab.UpdateTaskStatusRequest
	if !decodeBody(w, r, &body) {
		return
	}
	task, err := s.store.SetTaskStatus(id, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListTimeline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListTimeline())
}

func (s *Server) handleCreateTimeline(w http.ResponseWriter, r *http.Request) {
	var body collab.CreateTimelineRequest
	if !decodeBody(w, r, &body) {
		return
	}
	entry, err := s.store.CreateTimeline(body.Kind, body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleListPresence(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListPresence())
}

func (s *Server) handleSetPresence(w http.ResponseWriter, r *http.Request) {
	var body collab.SetPresenceRequest
	if !decodeBody(w, r, &body) {
		return
	}
	record, err := s.store.SetPresence(body.User, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleListFrames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListFrames())
}

// errorBody is the wire shape of every failure response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, collab.Invalidf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	kind := collab.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case collab.ErrorKindInvalid:
		status = http.StatusBadRequest
	case collab.ErrorKindNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorBody{Error: string(kind), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[Server] response encode failed: %v", err)
	}
}
