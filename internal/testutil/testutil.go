// Package testutil provides shared test helpers for setting up item stores and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "lagu-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary base directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	baseDir := t.TempDir()
	store, err := storage.NewFS(baseDir)
	if err != nil {
		t.Fatal(err)
	}
	return baseDir, store
}
