package catalog

import (
	"fmt"
	"time"

	"github.com/starford/livepad/internal/apperr"
	"github.com/starford/livepad/internal/models"
)

const projectColumns = `id, name, description, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(s rowScanner) (*models.Project, error) {
	var p models.Project
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject inserts a new project.
func (db *DB) CreateProject(name, description string) (*models.Project, error) {
	now := time.Now().UTC()
	res, err := db.conn.Exec(`INSERT INTO projects (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, description, now, now)
	if err != nil {
		return nil, fmt.Errorf("catalog: create project: %w", translate(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("catalog: create project: %w", err)
	}
	return db.GetProject(id)
}

// GetProject returns a project by id or apperr.ErrNotFound.
func (db *DB) GetProject(id int64) (*models.Project, error) {
	p, err := scanProject(db.conn.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("catalog: get project %d: %w", id, translate(err))
	}
	return p, nil
}

// ListProjects returns all projects, most recently updated first.
func (db *DB) ListProjects() ([]models.Project, error) {
	rows, err := db.conn.Query(`SELECT ` + projectColumns + ` FROM projects ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateProject changes the name and/or description. Nil fields are left as is.
func (db *DB) UpdateProject(id int64, name, description *string) (*models.Project, error) {
	res, err := db.conn.Exec(`
		UPDATE projects SET
			name        = COALESCE(?, name),
			description = COALESCE(?, description),
			updated_at  = ?
		WHERE id = ?
	`, name, description, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("catalog: update project: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("catalog: update project %d: %w", id, apperr.ErrNotFound)
	}
	return db.GetProject(id)
}

// DeleteProject removes a project; files and links cascade.
func (db *DB) DeleteProject(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	ftsDeleteProject(tx, id)
	res, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: delete project %d: %w", id, apperr.ErrNotFound)
	}
	return tx.Commit()
}

// ProjectIDs returns the id of every project.
func (db *DB) ProjectIDs() ([]int64, error) {
	rows, err := db.conn.Query(`SELECT id FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: project ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// touchProject bumps a project's updated_at inside a file mutation.
func touchProject(tx execer, projectID int64, now time.Time) {
	_, _ = tx.Exec(`UPDATE projects SET updated_at = ? WHERE id = ?`, now, projectID)
}
