// Package models defines the domain types for livepad.
package models

import "time"

// NoFile is the active-file sentinel for an empty project or an unset selection.
const NoFile int64 = 0

// Project groups a set of source files.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// File is a single named source file belonging to a project.
type File struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	FileName  string    `json:"file_name"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileMetadata is a lightweight representation returned by storage listings.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
