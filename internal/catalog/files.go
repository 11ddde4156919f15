package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/livepad/internal/apperr"
)

// FileRow represents a row in the files table.
type FileRow struct {
	ID        int64
	ProjectID int64
	FileName  string
	Position  int
	Title     string
	Checksum  string
	UpdatedAt time.Time
}

// FileEntry is the parsed content written alongside a file row.
type FileEntry struct {
	FileName string
	Title    string
	Checksum string
	Body     string
	Links    []string
}

// SearchResult represents one search hit.
type SearchResult struct {
	FileID   int64  `json:"file_id"`
	FileName string `json:"file_name"`
	Snippet  string `json:"snippet"`
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

const fileColumns = `id, project_id, file_name, position, title, checksum, updated_at`

func scanFile(s rowScanner) (*FileRow, error) {
	var f FileRow
	if err := s.Scan(&f.ID, &f.ProjectID, &f.FileName, &f.Position, &f.Title, &f.Checksum, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// InsertFile adds a new file at the end of the project's insertion order.
// A name already used in the project yields apperr.ErrAlreadyExists.
func (db *DB) InsertFile(projectID int64, e FileEntry) (*FileRow, error) {
	return db.writeFile(projectID, e, `
		INSERT INTO files (project_id, file_name, position, title, checksum, body, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM files WHERE project_id = ?), ?, ?, ?, ?)
		RETURNING id
	`)
}

// IndexFile inserts or refreshes a file by name. Existing rows keep their id
// and position.
func (db *DB) IndexFile(projectID int64, e FileEntry) (*FileRow, error) {
	return db.writeFile(projectID, e, `
		INSERT INTO files (project_id, file_name, position, title, checksum, body, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM files WHERE project_id = ?), ?, ?, ?, ?)
		ON CONFLICT(project_id, file_name) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
		RETURNING id
	`)
}

// writeFile runs an insert/upsert statement and replaces links and FTS data
// within one transaction.
func (db *DB) writeFile(projectID int64, e FileEntry, stmt string) (*FileRow, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	now := time.Now().UTC()
	var id int64
	err = tx.QueryRow(stmt, projectID, e.FileName, projectID, e.Title, e.Checksum, e.Body, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("catalog: write file %q: %w", e.FileName, translate(err))
	}

	if err := ftsUpsert(tx, id, projectID, e.FileName, e.Body); err != nil {
		return nil, err
	}

	_, _ = tx.Exec(`DELETE FROM links WHERE file_id = ?`, id)
	if len(e.Links) > 0 {
		ins, err := tx.Prepare(`INSERT OR IGNORE INTO links (file_id, target) VALUES (?, ?)`)
		if err != nil {
			return nil, fmt.Errorf("catalog: prepare link insert: %w", err)
		}
		defer ins.Close()
		for _, target := range e.Links {
			if _, err := ins.Exec(id, target); err != nil {
				return nil, fmt.Errorf("catalog: insert link: %w", err)
			}
		}
	}
	touchProject(tx, projectID, now)

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("catalog: commit: %w", err)
	}
	return db.GetFile(id)
}

// GetFile returns a file row by id or apperr.ErrNotFound.
func (db *DB) GetFile(id int64) (*FileRow, error) {
	f, err := scanFile(db.conn.QueryRow(`SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("catalog: get file %d: %w", id, translate(err))
	}
	return f, nil
}

// GetFileByName returns a file row by project and name or apperr.ErrNotFound.
func (db *DB) GetFileByName(projectID int64, name string) (*FileRow, error) {
	f, err := scanFile(db.conn.QueryRow(`SELECT `+fileColumns+` FROM files WHERE project_id = ? AND file_name = ?`, projectID, name))
	if err != nil {
		return nil, fmt.Errorf("catalog: get file %q: %w", name, translate(err))
	}
	return f, nil
}

// ListFiles returns a project's files in insertion order.
func (db *DB) ListFiles(projectID int64) ([]FileRow, error) {
	rows, err := db.conn.Query(`SELECT `+fileColumns+` FROM files WHERE project_id = ? ORDER BY position, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list files: %w", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// RenameFile changes a file's name, keeping its id and position.
func (db *DB) RenameFile(id int64, newName string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var projectID int64
	if err := tx.QueryRow(`SELECT project_id FROM files WHERE id = ?`, id).Scan(&projectID); err != nil {
		return fmt.Errorf("catalog: rename file %d: %w", id, translate(err))
	}
	now := time.Now().UTC()
	if _, err := tx.Exec(`UPDATE files SET file_name = ?, updated_at = ? WHERE id = ?`, newName, now, id); err != nil {
		return fmt.Errorf("catalog: rename file %d: %w", id, translate(err))
	}
	ftsRename(tx, id, newName)
	touchProject(tx, projectID, now)
	return tx.Commit()
}

// DeleteFile removes a file, its FTS entry, and outgoing links.
func (db *DB) DeleteFile(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var projectID int64
	if err := tx.QueryRow(`SELECT project_id FROM files WHERE id = ?`, id).Scan(&projectID); err != nil {
		return fmt.Errorf("catalog: delete file %d: %w", id, translate(err))
	}
	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM links WHERE file_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM files WHERE id = ?`, id)
	touchProject(tx, projectID, time.Now().UTC())
	return tx.Commit()
}

// DeleteFileByName removes a file by project and name. Missing files are not an error.
func (db *DB) DeleteFileByName(projectID int64, name string) error {
	f, err := db.GetFileByName(projectID, name)
	if err != nil {
		return nil
	}
	return db.DeleteFile(f.ID)
}

// AllChecksums returns file name → checksum for one project.
func (db *DB) AllChecksums(projectID int64) (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT file_name, checksum FROM files WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// Backlinks returns the names of files in the project that link to target.
func (db *DB) Backlinks(projectID int64, target string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT f.file_name
		FROM links l JOIN files f ON f.id = l.file_id
		WHERE f.project_id = ? AND l.target = ?
		ORDER BY f.position, f.id
	`, projectID, target)
	if err != nil {
		return nil, fmt.Errorf("catalog: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GraphNode is a file in the project link graph.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// GraphLink is a resolved href from one file to another.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph returns every file of a project and the links that resolve to
// another file of the same project.
func (db *DB) Graph(projectID int64) ([]GraphNode, []GraphLink, error) {
	files, err := db.ListFiles(projectID)
	if err != nil {
		return nil, nil, err
	}
	nodes := make([]GraphNode, 0, len(files))
	for _, f := range files {
		nodes = append(nodes, GraphNode{ID: f.FileName, Title: f.Title})
	}

	rows, err := db.conn.Query(`
		SELECT src.file_name, dst.file_name
		FROM links l
		JOIN files src ON src.id = l.file_id
		JOIN files dst ON dst.project_id = src.project_id AND dst.file_name = l.target
		WHERE src.project_id = ?
		ORDER BY src.position, dst.position
	`, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: graph links: %w", err)
	}
	defer rows.Close()

	links := []GraphLink{}
	for rows.Next() {
		var l GraphLink
		if err := rows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, rows.Err()
}
