// Package storage defines the on-disk project file abstraction.
package storage

import (
	"path"
	"strconv"

	"github.com/starford/livepad/internal/models"
)

// Provider is the interface for project file operations.
// All paths are relative to the storage root.
type Provider interface {
	// List returns metadata for every regular file under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// RemoveAll removes dir and everything below it.
	RemoveAll(dir string) error
}

// ProjectDir returns the directory holding a project's files.
func ProjectDir(projectID int64) string {
	return strconv.FormatInt(projectID, 10)
}

// FilePath returns the storage path of a project file.
func FilePath(projectID int64, fileName string) string {
	return path.Join(ProjectDir(projectID), fileName)
}
