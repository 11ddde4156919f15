//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
			file_id UNINDEXED,
			project_id UNINDEXED,
			file_name,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, projectID int64, name, body string) error {
	_, _ = tx.Exec(`DELETE FROM files_fts WHERE file_id = ?`, id)
	_, err := tx.Exec(`INSERT INTO files_fts (file_id, project_id, file_name, body) VALUES (?, ?, ?, ?)`,
		id, projectID, name, body)
	if err != nil {
		return fmt.Errorf("catalog: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id int64) {
	_, _ = tx.Exec(`DELETE FROM files_fts WHERE file_id = ?`, id)
}

func ftsRename(tx *sql.Tx, id int64, name string) {
	_, _ = tx.Exec(`UPDATE files_fts SET file_name = ? WHERE file_id = ?`, name, id)
}

func ftsDeleteProject(tx *sql.Tx, projectID int64) {
	_, _ = tx.Exec(`DELETE FROM files_fts WHERE project_id = ?`, projectID)
}

// Search performs an FTS5 full-text search within one project.
func (db *DB) Search(projectID int64, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT file_id,
		       file_name,
		       snippet(files_fts, 3, '<b>', '</b>', '...', 64)
		FROM files_fts
		WHERE files_fts MATCH ? AND project_id = ?
		ORDER BY rank
		LIMIT ?
	`, query, projectID, limit)
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
