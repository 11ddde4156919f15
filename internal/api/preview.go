package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/livepad/internal/checksum"
	"github.com/starford/livepad/internal/models"
	"github.com/starford/livepad/internal/preview"
	"github.com/starford/livepad/internal/registry"
)

const maxUploadBytes = 10 << 20

// Preview handles GET /api/projects/{id}/preview.
//
// The document is served sandboxed so project scripts cannot reach the API
// origin. Without ?active= the first file of the project is the body; an
// active id or name matching no file yields an empty body.
//
//	@Summary		Render a project's preview document
//	@Tags			preview
//	@Produce		html
//	@Param			id		path	int		true	"Project ID"
//	@Param			active	query	string	false	"Active file ID or name"
//	@Success		200		"Preview document"
//	@Success		304		"Not modified"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/preview [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	files, err := h.svc.ListFiles(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "preview failed", slog.Int64("project_id", id))
		return
	}
	reg, err := registry.New(files)
	if err != nil {
		writeServiceError(w, err, "preview failed", slog.Int64("project_id", id))
		return
	}
	active := reg.Active()
	if q := r.URL.Query().Get("active"); q != "" {
		// A file that no longer exists renders an empty body.
		active = models.NoFile
		if f, found := reg.ByName(q); found {
			active = f.ID
		} else if n, convErr := strconv.ParseInt(q, 10, 64); convErr == nil {
			if f, found := reg.ByID(n); found {
				active = f.ID
			}
		}
	}

	doc := preview.Compose(reg.Files(), active)
	etag := checksum.ETag(checksum.Sum([]byte(doc)))

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "sandbox allow-scripts")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc)); err != nil {
		slog.Warn("preview write failed", slog.String("error", err.Error()))
	}
}

// UploadFile handles POST /api/projects/{id}/files/upload (multipart/form-data, field "file").
//
//	@Summary		Upload a file into a project
//	@Tags			files
//	@Accept			mpfd
//	@Produce		json
//	@Param			id		path		int		true	"Project ID"
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	File
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/files/upload [post]
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	f, err := h.svc.UploadFile(r.Context(), id, header.Filename, content)
	if err != nil {
		writeServiceError(w, err, "upload failed", slog.Int64("project_id", id), slog.String("file", header.Filename))
		return
	}
	w.Header().Set("ETag", checksum.ETag(f.Checksum))
	writeJSON(w, http.StatusCreated, f)
}

// Session handles GET /api/projects/{id}/session by upgrading to a websocket
// editor session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if h.sessions == nil {
		http.NotFound(w, r)
		return
	}
	if _, err := h.svc.GetProject(r.Context(), id); err != nil {
		writeServiceError(w, err, "session failed", slog.Int64("project_id", id))
		return
	}
	h.sessions.Serve(w, r, id)
}
