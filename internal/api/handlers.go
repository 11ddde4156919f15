package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/livepad/internal/checksum"
	"github.com/starford/livepad/internal/projectservice"
	"github.com/starford/livepad/internal/session"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc      *projectservice.Service
	sessions *session.Handler
}

// NewHandler creates a new Handler. sessions may be nil, in which case the
// session endpoint answers 404.
func NewHandler(svc *projectservice.Service, sessions *session.Handler) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if err != nil {
		writeServiceError(w, err, "list projects failed")
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: projects})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	true	"Project to create"
//	@Success		201		{object}	Project
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	p, err := h.svc.CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err, "create project failed", slog.String("name", req.Name))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProject handles GET /api/projects/{id}.
//
//	@Summary		Get a project
//	@Tags			projects
//	@Produce		json
//	@Param			id	path		int	true	"Project ID"
//	@Success		200	{object}	Project
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetProject(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get project failed", slog.Int64("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProject handles PATCH /api/projects/{id}.
//
//	@Summary		Update a project's name or description
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Project ID"
//	@Param			body	body		UpdateProjectRequest	true	"Fields to change"
//	@Success		200		{object}	Project
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [patch]
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	p, err := h.svc.UpdateProject(r.Context(), id, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err, "update project failed", slog.Int64("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /api/projects/{id}.
//
//	@Summary		Delete a project and all its files
//	@Tags			projects
//	@Param			id	path	int	true	"Project ID"
//	@Success		204	"Project deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteProject(r.Context(), id); err != nil {
		writeServiceError(w, err, "delete project failed", slog.Int64("project_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFiles handles GET /api/projects/{id}/files.
//
//	@Summary		List a project's files in insertion order
//	@Tags			files
//	@Produce		json
//	@Param			id	path		int	true	"Project ID"
//	@Success		200	{object}	FileListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListFileItems(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "list files failed", slog.Int64("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: items})
}

// CreateFile handles POST /api/projects/{id}/files.
//
//	@Summary		Add a file to a project
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Project ID"
//	@Param			body	body		CreateFileRequest	true	"File to add"
//	@Success		201		{object}	File
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/files [post]
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	var (
		f   *File
		err error
	)
	if req.FileName == "" {
		f, err = h.svc.AddFile(r.Context(), id)
	} else {
		f, err = h.svc.CreateFile(r.Context(), id, req.FileName, []byte(req.Content))
	}
	if err != nil {
		writeServiceError(w, err, "create file failed", slog.Int64("project_id", id), slog.String("file", req.FileName))
		return
	}
	w.Header().Set("ETag", checksum.ETag(f.Checksum))
	writeJSON(w, http.StatusCreated, f)
}

// GetFile handles GET /api/files/{id}.
//
//	@Summary		Get a file with its content and backlinks
//	@Tags			files
//	@Produce		json
//	@Param			id	path		int	true	"File ID"
//	@Success		200	{object}	FileDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id} [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	d, err := h.svc.GetFile(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get file failed", slog.Int64("file_id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusOK, d)
}

// UpdateFile handles PUT /api/files/{id}.
//
//	@Summary		Save a file with optimistic concurrency
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			id			path		int					true	"File ID"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateFileRequest	true	"Updated content"
//	@Success		200			{object}	File
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id} [put]
func (h *Handler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req UpdateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	ifMatch := checksum.FromIfMatch(r.Header.Get("If-Match"))

	f, err := h.svc.UpdateFile(r.Context(), id, []byte(req.Content), ifMatch)
	if err != nil {
		writeServiceError(w, err, "update file failed", slog.Int64("file_id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(f.Checksum))
	writeJSON(w, http.StatusOK, f)
}

// RenameFile handles PATCH /api/files/{id}.
//
//	@Summary		Rename a file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"File ID"
//	@Param			body	body		RenameFileRequest	true	"New name"
//	@Success		200		{object}	File
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id} [patch]
func (h *Handler) RenameFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req RenameFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	f, err := h.svc.RenameFileByID(r.Context(), id, req.FileName)
	if err != nil {
		writeServiceError(w, err, "rename file failed", slog.Int64("file_id", id), slog.String("file", req.FileName))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DeleteFile handles DELETE /api/files/{id}.
//
//	@Summary		Delete a file
//	@Tags			files
//	@Param			id	path	int	true	"File ID"
//	@Success		204	"File deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id} [delete]
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteFile(r.Context(), id); err != nil {
		writeServiceError(w, err, "delete file failed", slog.Int64("file_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/projects/{id}/search.
//
//	@Summary		Full-text search within a project
//	@Tags			search
//	@Produce		json
//	@Param			id		path		int		true	"Project ID"
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), id, q, limit)
	if err != nil {
		writeServiceError(w, err, "search failed", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /api/projects/{id}/graph.
//
//	@Summary		Get a project's link graph
//	@Tags			graph
//	@Produce		json
//	@Param			id	path		int	true	"Project ID"
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	nodes, links, err := h.svc.Graph(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "graph failed", slog.Int64("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}
