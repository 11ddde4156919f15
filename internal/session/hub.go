package session

import (
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starford/livepad/internal/editor"
)

// Hub tracks live sessions per project.
type Hub struct {
	mu       sync.Mutex
	sessions map[int64]map[string]*Session
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[int64]map[string]*Session)}
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[s.ProjectID] == nil {
		h.sessions[s.ProjectID] = make(map[string]*Session)
	}
	h.sessions[s.ProjectID][s.ID] = s
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions[s.ProjectID], s.ID)
	if len(h.sessions[s.ProjectID]) == 0 {
		delete(h.sessions, s.ProjectID)
	}
}

// Reload asks every session of a project to refetch its files.
func (h *Hub) Reload(projectID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions[projectID] {
		s.Reload()
	}
}

// Count returns the number of sessions open on a project.
func (h *Hub) Count(projectID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[projectID])
}

// Handler upgrades HTTP requests to editor sessions.
type Handler struct {
	collab      editor.Collaborator
	hub         *Hub
	saveTimeout time.Duration
	upgrader    websocket.Upgrader
}

// NewHandler returns a session handler. An empty allowedOrigins list, or one
// containing "*", accepts any origin.
func NewHandler(collab editor.Collaborator, hub *Hub, saveTimeout time.Duration, allowedOrigins []string) *Handler {
	return &Handler{
		collab:      collab,
		hub:         hub,
		saveTimeout: saveTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// Serve upgrades the request and runs a session for projectID until the
// client disconnects. The caller checks that the project exists.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, projectID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("session: websocket upgrade", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	s := newSession(conn, projectID, h.collab, h.saveTimeout)
	h.hub.add(s)
	defer h.hub.remove(s)

	slog.Info("session: opened", slog.String("session_id", s.ID), slog.Int64("project_id", projectID))
	s.run(r.Context())
	slog.Info("session: closed", slog.String("session_id", s.ID))
}
