// Package storage defines the authoritative one-file-per-item store.
package storage

import "github.com/starford/lagu/internal/models"

// Provider is the interface for item file operations. Files are the ground
// truth for single-item reads; the SQLite index is a derived projection.
type Provider interface {
	// Save atomically writes an item file, overwriting any existing file
	// for that id.
	Save(cfg models.TypeConfig, id string, data []byte) error
	// SaveNew writes an item file with an exclusive-create flag. It fails
	// with os.ErrExist when a file for that id already exists; for
	// date-keyed types this is the authoritative duplicate signal.
	SaveNew(cfg models.TypeConfig, id string, data []byte) error
	// Load returns the raw bytes of an item file.
	Load(cfg models.TypeConfig, id string) ([]byte, error)
	// Delete removes an item file. It reports whether a file existed and
	// never fails on "not found".
	Delete(cfg models.TypeConfig, id string) (bool, error)
	// Exists reports whether an item file is present.
	Exists(cfg models.TypeConfig, id string) (bool, error)
	// List returns the ids of every item file for a type. For
	// date-partitioned types a non-empty partition restricts the listing
	// to that subdirectory.
	List(cfg models.TypeConfig, partition string) ([]string, error)
	// ListPartitions returns the partition keys (YYYY-MM subdirectories)
	// present for a date-partitioned type.
	ListPartitions(cfg models.TypeConfig) ([]string, error)
	// Root returns the absolute base directory.
	Root() string
}
