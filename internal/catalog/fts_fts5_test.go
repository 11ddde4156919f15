//go:build sqlite_fts5

package catalog

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files_fts`).Scan(&count); err != nil {
		t.Fatalf("files_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	pid := testProject(t, db)
	_, err := db.IndexFile(pid, FileEntry{FileName: "fts.html", Body: "livepad provides powerful full-text search capabilities."})
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	results, err := db.Search(pid, "powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].FileName != "fts.html" {
		t.Errorf("file_name = %q", results[0].FileName)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	pid := testProject(t, db)
	_, _ = db.IndexFile(pid, FileEntry{FileName: "gone.html", Body: "vanishing content"})
	_ = db.DeleteFileByName(pid, "gone.html")

	results, _ := db.Search(pid, "vanishing", 10)
	if len(results) != 0 {
		t.Errorf("deleted file still in FTS index: %+v", results)
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	pid := testProject(t, db)
	_, _ = db.IndexFile(pid, FileEntry{FileName: "evo.html", Body: "original text"})
	_, _ = db.IndexFile(pid, FileEntry{FileName: "evo.html", Body: "replacement text"})

	results, _ := db.Search(pid, "original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search(pid, "replacement", 10)
	if len(results) != 1 || results[0].FileName != "evo.html" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
