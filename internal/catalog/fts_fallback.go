//go:build !sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over files.body.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _ int64, _, _ string) error {
	// Body is already stored in the files table.
	return nil
}

func ftsDelete(_ *sql.Tx, _ int64)           {}
func ftsRename(_ *sql.Tx, _ int64, _ string) {}
func ftsDeleteProject(_ *sql.Tx, _ int64)    {}

// Search performs a LIKE-based search within one project.
func (db *DB) Search(projectID int64, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, file_name, substr(body, 1, 200)
		FROM files
		WHERE project_id = ? AND (file_name LIKE ? OR body LIKE ?)
		ORDER BY position, id
		LIMIT ?
	`, projectID, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.FileID, &r.FileName, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
