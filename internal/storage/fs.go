package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/lagu/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the base directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute base directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the base dir and rejects any
// result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes base dir: %s", rel)
	}
	return abs, nil
}

// ItemPath returns the relative file path for an item id under its type
// config: <dir>[/<YYYY-MM>]/<prefix><id>.md.
func ItemPath(cfg models.TypeConfig, id string) string {
	name := cfg.Prefix + id + ".md"
	if cfg.DatePartitioned {
		return filepath.Join(cfg.Dir, models.PartitionKey(id), name)
	}
	return filepath.Join(cfg.Dir, name)
}

// Save atomically writes content: tmp file, fsync, rename.
func (f *FS) Save(cfg models.TypeConfig, id string, data []byte) error {
	abs, err := f.safePath(ItemPath(cfg, id))
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".lagu-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// SaveNew writes content with O_EXCL so that concurrent creates of the same
// id race on the file system, not on an existence check. The os.ErrExist
// failure is the duplicate signal.
func (f *FS) SaveNew(cfg models.TypeConfig, id string, data []byte) error {
	abs, err := f.safePath(ItemPath(cfg, id))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	file, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("storage: %s/%s: %w", cfg.Dir, id, os.ErrExist)
		}
		return fmt.Errorf("storage: create: %w", err)
	}
	success := false
	defer func() {
		if !success {
			_ = file.Close()
			_ = os.Remove(abs)
		}
	}()
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("storage: write: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	success = true
	return nil
}

// Load returns the raw bytes of an item file.
func (f *FS) Load(cfg models.TypeConfig, id string) ([]byte, error) {
	abs, err := f.safePath(ItemPath(cfg, id))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s/%s: %w", cfg.Dir, id, err)
	}
	return data, nil
}

// Delete removes an item file, reporting whether it existed.
func (f *FS) Delete(cfg models.TypeConfig, id string) (bool, error) {
	abs, err := f.safePath(ItemPath(cfg, id))
	if err != nil {
		return false, err
	}
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: delete %s/%s: %w", cfg.Dir, id, err)
	}
	return true, nil
}

// Exists reports whether an item file is present.
func (f *FS) Exists(cfg models.TypeConfig, id string) (bool, error) {
	abs, err := f.safePath(ItemPath(cfg, id))
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %s/%s: %w", cfg.Dir, id, err)
	}
	return true, nil
}

// List walks the type directory (optionally a single partition) and returns
// the ids of every item file, sorted.
func (f *FS) List(cfg models.TypeConfig, partition string) ([]string, error) {
	dir := cfg.Dir
	if partition != "" {
		dir = filepath.Join(cfg.Dir, partition)
	}
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return nil, nil
	}

	var out []string
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if id, ok := IDFromFilename(cfg, d.Name()); ok {
			out = append(out, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", cfg.Dir, err)
	}
	sort.Strings(out)
	return out, nil
}

// ListPartitions returns the partition subdirectory names for a type.
func (f *FS) ListPartitions(cfg models.TypeConfig) ([]string, error) {
	base, err := f.safePath(cfg.Dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list partitions %s: %w", cfg.Dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// IDFromFilename recovers an item id from its filename, or reports false
// for files that do not belong to the type (wrong prefix or extension).
func IDFromFilename(cfg models.TypeConfig, name string) (string, bool) {
	if !strings.HasSuffix(name, ".md") || !strings.HasPrefix(name, cfg.Prefix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, cfg.Prefix), ".md")
	if id == "" {
		return "", false
	}
	return id, true
}
