package catalog

import "github.com/starford/livepad/internal/models"

// Catalog defines the interface for project and file catalog operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type Catalog interface {
	CreateProject(name, description string) (*models.Project, error)
	GetProject(id int64) (*models.Project, error)
	ListProjects() ([]models.Project, error)
	UpdateProject(id int64, name, description *string) (*models.Project, error)
	DeleteProject(id int64) error
	ProjectIDs() ([]int64, error)

	InsertFile(projectID int64, entry FileEntry) (*FileRow, error)
	IndexFile(projectID int64, entry FileEntry) (*FileRow, error)
	GetFile(id int64) (*FileRow, error)
	GetFileByName(projectID int64, name string) (*FileRow, error)
	ListFiles(projectID int64) ([]FileRow, error)
	RenameFile(id int64, newName string) error
	DeleteFile(id int64) error
	DeleteFileByName(projectID int64, name string) error
	AllChecksums(projectID int64) (map[string]string, error)

	Search(projectID int64, query string, limit int) ([]SearchResult, error)
	Graph(projectID int64) ([]GraphNode, []GraphLink, error)
	Backlinks(projectID int64, target string) ([]string, error)
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
