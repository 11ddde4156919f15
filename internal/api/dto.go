package api

import (
	"github.com/starford/livepad/internal/catalog"
	"github.com/starford/livepad/internal/models"
	"github.com/starford/livepad/internal/projectservice"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name        string `json:"name" example:"Landing page" validate:"required"`
	Description string `json:"description" example:"Marketing site"`
}

// UpdateProjectRequest is the request body for updating a project. Omitted
// fields are left unchanged.
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty" example:"Landing page v2"`
	Description *string `json:"description,omitempty" example:"Second iteration"`
}

// CreateFileRequest is the request body for adding a file. An empty name
// creates untitled.html (or the next free untitled-N.html).
type CreateFileRequest struct {
	FileName string `json:"file_name" example:"about.html"`
	Content  string `json:"content" example:"<h1>About</h1>"`
}

// UpdateFileRequest is the request body for saving a file.
type UpdateFileRequest struct {
	Content string `json:"content" example:"<h1>Updated</h1>"`
}

// RenameFileRequest is the request body for renaming a file.
type RenameFileRequest struct {
	FileName string `json:"file_name" example:"home.html" validate:"required"`
}

// Project is the project response type (aliased from the domain layer).
type Project = models.Project

// File is the file response type (aliased from the domain layer).
type File = models.File

// FileDetail is the full file response type (aliased from the domain layer).
type FileDetail = projectservice.FileDetail

// FileListItem is a lightweight item in a file list response.
type FileListItem = projectservice.FileListItem

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []Project `json:"projects" validate:"required"`
}

// FileListResponse wraps file listings.
type FileListResponse struct {
	Files []FileListItem `json:"files" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []catalog.SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps a project's link graph.
type GraphResponse struct {
	Nodes []catalog.GraphNode `json:"nodes" validate:"required"`
	Links []catalog.GraphLink `json:"links" validate:"required"`
}
