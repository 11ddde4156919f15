// Package projectservice coordinates project files on disk with the catalog.
package projectservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/livepad/internal/apperr"
	"github.com/starford/livepad/internal/catalog"
	"github.com/starford/livepad/internal/checksum"
	"github.com/starford/livepad/internal/models"
	"github.com/starford/livepad/internal/storage"
)

const maxFileName = 128

var fileNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateFileName checks that name is a plain file name usable on disk.
func ValidateFileName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Length(1, maxFileName),
		validation.Match(fileNameRe),
	)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", apperr.ErrInvalidName, name, err)
	}
	return nil
}

// FileDetail is a file with the data derived from its content.
type FileDetail struct {
	models.File
	Title     string   `json:"title"`
	Backlinks []string `json:"backlinks"`
}

// FileListItem is a lightweight item in a file list response.
type FileListItem struct {
	ID        int64     `json:"id"`
	FileName  string    `json:"file_name"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates storage and catalog operations.
type Service struct {
	store storage.Provider
	db    catalog.Catalog
}

// NewService creates a new project service.
func NewService(store storage.Provider, db catalog.Catalog) *Service {
	return &Service{store: store, db: db}
}

// CreateProject adds an empty project.
func (s *Service) CreateProject(_ context.Context, name, description string) (*models.Project, error) {
	if err := validateProjectName(name); err != nil {
		return nil, err
	}
	return s.db.CreateProject(strings.TrimSpace(name), description)
}

// GetProject returns a project by id.
func (s *Service) GetProject(_ context.Context, id int64) (*models.Project, error) {
	return s.db.GetProject(id)
}

// ListProjects returns all projects.
func (s *Service) ListProjects(_ context.Context) ([]models.Project, error) {
	out, err := s.db.ListProjects()
	return nonNilSlice(out), err
}

// UpdateProject changes a project's name and/or description.
func (s *Service) UpdateProject(_ context.Context, id int64, name, description *string) (*models.Project, error) {
	if name != nil {
		if err := validateProjectName(*name); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*name)
		name = &trimmed
	}
	return s.db.UpdateProject(id, name, description)
}

// DeleteProject removes a project and its directory.
func (s *Service) DeleteProject(_ context.Context, id int64) error {
	if err := s.db.DeleteProject(id); err != nil {
		return err
	}
	return s.store.RemoveAll(storage.ProjectDir(id))
}

// ListFiles returns a project's files with content, in insertion order.
// Files whose content cannot be read are skipped.
func (s *Service) ListFiles(_ context.Context, projectID int64) ([]models.File, error) {
	if _, err := s.db.GetProject(projectID); err != nil {
		return nil, err
	}
	rows, err := s.db.ListFiles(projectID)
	if err != nil {
		return nil, err
	}
	out := make([]models.File, 0, len(rows))
	for _, r := range rows {
		data, err := s.store.Read(storage.FilePath(projectID, r.FileName))
		if err != nil {
			slog.Warn("list files: read failed",
				slog.Int64("project_id", projectID),
				slog.String("file", r.FileName),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, fileFromRow(r, data))
	}
	return out, nil
}

// ListFileItems returns catalog metadata for a project's files without reading content.
func (s *Service) ListFileItems(_ context.Context, projectID int64) ([]FileListItem, error) {
	if _, err := s.db.GetProject(projectID); err != nil {
		return nil, err
	}
	rows, err := s.db.ListFiles(projectID)
	if err != nil {
		return nil, err
	}
	items := make([]FileListItem, len(rows))
	for i, r := range rows {
		items[i] = FileListItem{
			ID:        r.ID,
			FileName:  r.FileName,
			Title:     r.Title,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, nil
}

// GetFile reads a file and enriches it with backlinks.
func (s *Service) GetFile(_ context.Context, id int64) (*FileDetail, error) {
	row, err := s.db.GetFile(id)
	if err != nil {
		return nil, err
	}
	data, err := s.read(row)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(row.ProjectID, row.FileName)
	if err != nil {
		return nil, err
	}
	return &FileDetail{
		File:      fileFromRow(*row, data),
		Title:     row.Title,
		Backlinks: nonNilSlice(bl),
	}, nil
}

// GetFileByName reads a file by project and name.
func (s *Service) GetFileByName(ctx context.Context, projectID int64, name string) (*FileDetail, error) {
	row, err := s.db.GetFileByName(projectID, name)
	if err != nil {
		return nil, err
	}
	return s.GetFile(ctx, row.ID)
}

// WriteFile creates the named file or replaces its content.
func (s *Service) WriteFile(ctx context.Context, projectID int64, name string, content []byte) (*models.File, bool, error) {
	row, err := s.db.GetFileByName(projectID, name)
	if errors.Is(err, apperr.ErrNotFound) {
		f, err := s.CreateFile(ctx, projectID, name, content)
		return f, true, err
	}
	if err != nil {
		return nil, false, err
	}
	f, err := s.UpdateFile(ctx, row.ID, content, "")
	return f, false, err
}

// CreateFile adds a file with the given name and content at the end of the
// project. The catalog row is written first so duplicate names fail before
// anything touches the disk.
func (s *Service) CreateFile(_ context.Context, projectID int64, name string, content []byte) (*models.File, error) {
	if err := ValidateFileName(name); err != nil {
		return nil, err
	}
	row, err := s.db.InsertFile(projectID, catalog.Entry(name, content))
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(storage.FilePath(projectID, name), content); err != nil {
		_ = s.db.DeleteFile(row.ID)
		return nil, err
	}
	f := fileFromRow(*row, content)
	return &f, nil
}

// AddFile creates an empty file named untitled.html, untitled-1.html, ...
func (s *Service) AddFile(ctx context.Context, projectID int64) (*models.File, error) {
	for i := 0; ; i++ {
		name := "untitled.html"
		if i > 0 {
			name = "untitled-" + strconv.Itoa(i) + ".html"
		}
		if _, err := s.db.GetFileByName(projectID, name); err == nil {
			continue
		}
		f, err := s.CreateFile(ctx, projectID, name, nil)
		if errors.Is(err, apperr.ErrAlreadyExists) {
			continue
		}
		return f, err
	}
}

// UploadFile adds a file with user-supplied name and content.
func (s *Service) UploadFile(ctx context.Context, projectID int64, name string, content []byte) (*models.File, error) {
	return s.CreateFile(ctx, projectID, name, content)
}

// SaveFile replaces a file's content unconditionally.
func (s *Service) SaveFile(ctx context.Context, id int64, content string) (*models.File, error) {
	return s.UpdateFile(ctx, id, []byte(content), "")
}

// UpdateFile writes updated content with optimistic concurrency: a non-empty
// ifMatch must equal the checksum of the current content.
func (s *Service) UpdateFile(_ context.Context, id int64, content []byte, ifMatch string) (*models.File, error) {
	row, err := s.db.GetFile(id)
	if err != nil {
		return nil, err
	}
	existing, err := s.read(row)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(storage.FilePath(row.ProjectID, row.FileName), content); err != nil {
		return nil, err
	}
	updated, err := s.db.IndexFile(row.ProjectID, catalog.Entry(row.FileName, content))
	if err != nil {
		return nil, err
	}
	f := fileFromRow(*updated, content)
	return &f, nil
}

// RenameFile renames a file within a project. The catalog is updated first
// and reverted if the move on disk fails.
func (s *Service) RenameFile(_ context.Context, projectID int64, oldName, newName string) (*models.File, error) {
	if err := ValidateFileName(newName); err != nil {
		return nil, err
	}
	row, err := s.db.GetFileByName(projectID, oldName)
	if err != nil {
		return nil, err
	}
	if oldName == newName {
		data, err := s.read(row)
		if err != nil {
			return nil, err
		}
		f := fileFromRow(*row, data)
		return &f, nil
	}
	if err := s.db.RenameFile(row.ID, newName); err != nil {
		return nil, err
	}
	if err := s.store.Move(storage.FilePath(projectID, oldName), storage.FilePath(projectID, newName)); err != nil {
		_ = s.db.RenameFile(row.ID, oldName)
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("projectservice: rename %q: %w", newName, apperr.ErrAlreadyExists)
		}
		return nil, err
	}
	row.FileName = newName
	data, err := s.read(row)
	if err != nil {
		return nil, err
	}
	f := fileFromRow(*row, data)
	return &f, nil
}

// RenameFileByID renames the file with the given id.
func (s *Service) RenameFileByID(ctx context.Context, id int64, newName string) (*models.File, error) {
	row, err := s.db.GetFile(id)
	if err != nil {
		return nil, err
	}
	return s.RenameFile(ctx, row.ProjectID, row.FileName, newName)
}

// DeleteFile removes a file from the catalog and the disk.
func (s *Service) DeleteFile(_ context.Context, id int64) error {
	row, err := s.db.GetFile(id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteFile(id); err != nil {
		return err
	}
	if err := s.store.Delete(storage.FilePath(row.ProjectID, row.FileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Search delegates full-text search to the catalog.
func (s *Service) Search(_ context.Context, projectID int64, query string, limit int) ([]catalog.SearchResult, error) {
	out, err := s.db.Search(projectID, query, limit)
	return nonNilSlice(out), err
}

// Graph returns the nodes and resolved links of a project.
func (s *Service) Graph(_ context.Context, projectID int64) ([]catalog.GraphNode, []catalog.GraphLink, error) {
	if _, err := s.db.GetProject(projectID); err != nil {
		return nil, nil, err
	}
	return s.db.Graph(projectID)
}

// Backlinks returns the files of a project linking to target.
func (s *Service) Backlinks(_ context.Context, projectID int64, target string) ([]string, error) {
	out, err := s.db.Backlinks(projectID, target)
	return nonNilSlice(out), err
}

func (s *Service) read(row *catalog.FileRow) ([]byte, error) {
	data, err := s.store.Read(storage.FilePath(row.ProjectID, row.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("projectservice: file %q: %w", row.FileName, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func fileFromRow(r catalog.FileRow, data []byte) models.File {
	return models.File{
		ID:        r.ID,
		ProjectID: r.ProjectID,
		FileName:  r.FileName,
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		UpdatedAt: r.UpdatedAt,
	}
}

func validateProjectName(name string) error {
	err := validation.Validate(strings.TrimSpace(name), validation.Required, validation.Length(1, 200))
	if err != nil {
		return fmt.Errorf("%w: project name %v", apperr.ErrInvalid, err)
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
