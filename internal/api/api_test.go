package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/livepad/internal/projectservice"
	"github.com/starford/livepad/internal/testutil"
)

// testEnv sets up a temp storage root, SQLite catalog, service and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*projectservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvWithRoot(t, authToken != "", authToken, nil)
	return svc, router
}

func testEnvWithRoot(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*projectservice.Service, http.Handler, string) {
	t.Helper()
	root, store := testutil.TestStore(t)
	db := testutil.TestDB(t)
	svc := projectservice.NewService(store, db)
	router := NewRouter(svc, nil, authEnabled, authToken, sseHandler)
	return svc, router, root
}

func do(t *testing.T, router http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createProject(t *testing.T, router http.Handler, name string) Project {
	t.Helper()
	w := do(t, router, http.MethodPost, "/projects", map[string]string{"name": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create project = %d, body = %s", w.Code, w.Body.String())
	}
	var p Project
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	return p
}

func createFile(t *testing.T, router http.Handler, projectID int64, name, content string) File {
	t.Helper()
	w := do(t, router, http.MethodPost, fmt.Sprintf("/projects/%d/files", projectID),
		map[string]string{"file_name": name, "content": content})
	if w.Code != http.StatusCreated {
		t.Fatalf("create file %s = %d, body = %s", name, w.Code, w.Body.String())
	}
	var f File
	_ = json.Unmarshal(w.Body.Bytes(), &f)
	return f
}

func TestProjectCRUD(t *testing.T) {
	_, router := testEnv(t, "")

	p := createProject(t, router, "Site")
	if p.ID == 0 || p.Name != "Site" {
		t.Fatalf("project = %+v", p)
	}

	w := do(t, router, http.MethodPatch, fmt.Sprintf("/projects/%d", p.ID), map[string]string{"description": "landing"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	var got Project
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Name != "Site" || got.Description != "landing" {
		t.Errorf("patched project = %+v", got)
	}

	w = do(t, router, http.MethodGet, "/projects", nil)
	var list ProjectListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Projects) != 1 {
		t.Fatalf("projects = %d, want 1", len(list.Projects))
	}

	w = do(t, router, http.MethodDelete, fmt.Sprintf("/projects/%d", p.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d", p.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", w.Code)
	}
}

func TestCreateProject_EmptyName(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/projects", map[string]string{"name": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty name = %d, want 400", w.Code)
	}
}

func TestInvalidProjectID(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/projects/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", w.Code)
	}
}

func TestCreateAndGetFile(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")

	createFile(t, router, p.ID, "about.html", "<h1>About</h1>")
	f := createFile(t, router, p.ID, "index.html", `<title>Home</title><a href="about.html">about</a>`)

	w := do(t, router, http.MethodGet, fmt.Sprintf("/files/%d", f.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}
	var d FileDetail
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.FileName != "index.html" || d.Title != "Home" {
		t.Errorf("detail = %+v", d)
	}

	about := do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/files", p.ID), nil)
	var list FileListResponse
	_ = json.Unmarshal(about.Body.Bytes(), &list)
	if len(list.Files) != 2 || list.Files[0].FileName != "about.html" || list.Files[1].FileName != "index.html" {
		t.Fatalf("files = %+v, want insertion order", list.Files)
	}

	w = do(t, router, http.MethodGet, fmt.Sprintf("/files/%d", list.Files[0].ID), nil)
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if len(d.Backlinks) != 1 || d.Backlinks[0] != "index.html" {
		t.Errorf("backlinks = %v, want [index.html]", d.Backlinks)
	}
}

func TestCreateFile_Untitled(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")

	for _, want := range []string{"untitled.html", "untitled-1.html"} {
		f := createFile(t, router, p.ID, "", "")
		if f.FileName != want {
			t.Errorf("file name = %q, want %q", f.FileName, want)
		}
	}
}

func TestCreateFile_Duplicate(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	createFile(t, router, p.ID, "dup.html", "a")

	w := do(t, router, http.MethodPost, fmt.Sprintf("/projects/%d/files", p.ID),
		map[string]string{"file_name": "dup.html", "content": "b"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateFile_InvalidName(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")

	for _, name := range []string{"../evil.html", "a/b.html", ".hidden"} {
		w := do(t, router, http.MethodPost, fmt.Sprintf("/projects/%d/files", p.ID),
			map[string]string{"file_name": name})
		if w.Code != http.StatusBadRequest {
			t.Errorf("create %q = %d, want 400", name, w.Code)
		}
	}
}

func TestCreateFile_UnknownProject(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/projects/999/files", map[string]string{"file_name": "a.html"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown project = %d, want 404", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	f := createFile(t, router, p.ID, "lock.html", "v1")
	target := fmt.Sprintf("/files/%d", f.ID)

	w := do(t, router, http.MethodPut, target, map[string]string{"content": "v2"}, "If-Match", `"`+f.Checksum+`"`)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}

	// Stale checksum.
	w = do(t, router, http.MethodPut, target, map[string]string{"content": "v3"}, "If-Match", `"`+f.Checksum+`"`)
	if w.Code != http.StatusConflict {
		t.Errorf("stale update = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	f := createFile(t, router, p.ID, "free.html", "v1")

	w := do(t, router, http.MethodPut, fmt.Sprintf("/files/%d", f.ID), map[string]string{"content": "v2"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d", w.Code)
	}
	var got File
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Content != "v2" {
		t.Errorf("content = %q, want v2", got.Content)
	}
}

func TestUpdateFile_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPut, "/files/42", map[string]string{"content": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestRenameFile(t *testing.T) {
	_, router, root := testEnvWithRoot(t, false, "", nil)
	p := createProject(t, router, "Site")
	f := createFile(t, router, p.ID, "old.html", "x")
	createFile(t, router, p.ID, "taken.html", "y")

	w := do(t, router, http.MethodPatch, fmt.Sprintf("/files/%d", f.ID), map[string]string{"file_name": "new.html"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename = %d, body = %s", w.Code, w.Body.String())
	}
	dir := filepath.Join(root, fmt.Sprint(p.ID))
	if _, err := os.Stat(filepath.Join(dir, "new.html")); err != nil {
		t.Errorf("renamed file missing on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "old.html")); !os.IsNotExist(err) {
		t.Error("old file should be gone")
	}

	w = do(t, router, http.MethodPatch, fmt.Sprintf("/files/%d", f.ID), map[string]string{"file_name": "taken.html"})
	if w.Code != http.StatusConflict {
		t.Errorf("rename onto existing = %d, want 409", w.Code)
	}
}

func TestDeleteFile(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	f := createFile(t, router, p.ID, "gone.html", "x")

	w := do(t, router, http.MethodDelete, fmt.Sprintf("/files/%d", f.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, fmt.Sprintf("/files/%d", f.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestPreviewEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	createFile(t, router, p.ID, "index.html", "<p>home</p>")
	about := createFile(t, router, p.ID, "about.html", "<p>about</p>")
	createFile(t, router, p.ID, "site.css", "p{color:red}")

	w := do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/preview", p.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if csp := w.Header().Get("Content-Security-Policy"); csp != "sandbox allow-scripts" {
		t.Errorf("csp = %q", csp)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<p>home</p>") || strings.Contains(body, "<p>about</p>") {
		t.Errorf("default preview should show the first file:\n%s", body)
	}
	if !strings.Contains(body, "p{color:red}") {
		t.Error("stylesheet missing from preview")
	}

	for _, active := range []string{"about.html", fmt.Sprint(about.ID)} {
		w = do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/preview?active=%s", p.ID, active), nil)
		if !strings.Contains(w.Body.String(), "<p>about</p>") {
			t.Errorf("active=%s did not render about.html", active)
		}
	}

	etag := w.Header().Get("ETag")
	w = do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/preview?active=about.html", p.ID), nil, "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional preview = %d, want 304", w.Code)
	}

	w = do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/preview?active=missing.html", p.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unknown active = %d, want 200", w.Code)
	}
	assertEmptyBody(t, w.Body.String())
}

// assertEmptyBody checks that a preview document renders no page file.
func assertEmptyBody(t *testing.T, doc string) {
	t.Helper()
	if !strings.Contains(doc, "<body>\n\n<script>") {
		t.Errorf("body should be empty:\n%s", doc)
	}
	if strings.Contains(doc, "<p>home</p>") || strings.Contains(doc, "<p>about</p>") {
		t.Errorf("no page file should be rendered:\n%s", doc)
	}
}

func TestPreviewEndpoint_DeletedActiveFile(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	createFile(t, router, p.ID, "index.html", "<p>home</p>")
	about := createFile(t, router, p.ID, "about.html", "<p>about</p>")

	w := do(t, router, http.MethodDelete, fmt.Sprintf("/files/%d", about.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/preview?active=%d", p.ID, about.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview of deleted file = %d, want 200; body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	assertEmptyBody(t, w.Body.String())
}

func TestPreviewEndpoint_UnknownProject(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/projects/999/preview", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown project = %d, want 404", w.Code)
	}
}

func TestPreviewEndpoint_EmptyProject(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Empty")

	w := do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/preview", p.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "<!DOCTYPE html>") {
		t.Errorf("preview is not a full document:\n%s", w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	createFile(t, router, p.ID, "a.html", "<p>unique zebra</p>")
	createFile(t, router, p.ID, "b.html", "<p>nothing</p>")

	w := do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/search?q=zebra", p.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].FileName != "a.html" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	w := do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/search", p.ID), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestGraphEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	createFile(t, router, p.ID, "index.html", `<a href="about.html">about</a>`)
	createFile(t, router, p.ID, "about.html", "<h1>About</h1>")

	w := do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/graph", p.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph = %d", w.Code)
	}
	var g GraphResponse
	_ = json.Unmarshal(w.Body.Bytes(), &g)
	if len(g.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(g.Nodes))
	}
	if len(g.Links) != 1 || g.Links[0].Source != "index.html" || g.Links[0].Target != "about.html" {
		t.Errorf("links = %+v", g.Links)
	}
}

// Auth middleware tests.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/projects", nil, "Authorization", "Bearer secret")
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/projects?access_token=secret", nil)
	if w.Code != http.StatusOK {
		t.Errorf("query token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/projects", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	w = do(t, router, http.MethodGet, "/projects?access_token=secret", nil, "Authorization", "Basic c2VjcmV0")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("non-bearer header = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusOK {
		t.Errorf("disabled auth = %d, want 200", w.Code)
	}
}

func TestSessionRoute_NoHandler(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	w := do(t, router, http.MethodGet, fmt.Sprintf("/projects/%d/session", p.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("session without handler = %d, want 404", w.Code)
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router, _ := testEnvWithRoot(t, true, "secret", sseStub())
	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router, _ := testEnvWithRoot(t, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// Upload tests.

func uploadFile(t *testing.T, router http.Handler, projectID int64, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/projects/%d/files/upload", projectID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadFile(t *testing.T) {
	_, router, root := testEnvWithRoot(t, false, "", nil)
	p := createProject(t, router, "Site")

	w := uploadFile(t, router, p.ID, "script.js", []byte("console.log(1)"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var f File
	_ = json.Unmarshal(w.Body.Bytes(), &f)
	if f.FileName != "script.js" || f.Content != "console.log(1)" {
		t.Errorf("uploaded = %+v", f)
	}

	data, err := os.ReadFile(filepath.Join(root, fmt.Sprint(p.ID), "script.js"))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if string(data) != "console.log(1)" {
		t.Errorf("disk content = %q", data)
	}
}

func TestUploadFile_InvalidFilename(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")
	w := uploadFile(t, router, p.ID, "bad name.html", []byte("x"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("traversal upload = %d, want 400", w.Code)
	}
}

func TestUploadFile_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")
	p := createProject(t, router, "Site")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/projects/%d/files/upload", p.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file field = %d, want 400", w.Code)
	}
}
