// Package testutil provides shared test helpers for setting up storage roots,
// catalogs and projects.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/livepad/internal/catalog"
	"github.com/starford/livepad/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "livepad-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary storage root with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// TestProject creates a project in db and returns its id.
func TestProject(t *testing.T, db catalog.Catalog, name string) int64 {
	t.Helper()
	p, err := db.CreateProject(name, "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p.ID
}
