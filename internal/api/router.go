package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/livepad/internal/projectservice"
	"github.com/starford/livepad/internal/session"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sessions may be nil when websocket editing is not served.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *projectservice.Service, sessions *session.Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, sessions)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Projects.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)
	r.Route("/projects/{id}", func(r chi.Router) {
		r.Get("/", h.GetProject)
		r.Patch("/", h.UpdateProject)
		r.Delete("/", h.DeleteProject)

		r.Get("/files", h.ListFiles)
		r.Post("/files", h.CreateFile)
		r.Post("/files/upload", h.UploadFile)

		r.Get("/preview", h.Preview)
		r.Get("/search", h.Search)
		r.Get("/graph", h.Graph)
		r.Get("/session", h.Session)
	})

	// Files.
	r.Get("/files/{id}", h.GetFile)
	r.Put("/files/{id}", h.UpdateFile)
	r.Patch("/files/{id}", h.RenameFile)
	r.Delete("/files/{id}", h.DeleteFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
