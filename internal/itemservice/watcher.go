package itemservice

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lagu/internal/checksum"
	"github.com/starford/lagu/internal/models"
	"github.com/starford/lagu/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind, typeName, id string)

// Watch starts an fsnotify watcher on the base directory and re-projects
// item files edited outside the service until ctx is cancelled. It calls
// cb (if non-nil) after each successful index mutation.
//
// New directories created at runtime (type dirs, date partitions) are
// automatically added to the watch list. Rename events trigger a debounced
// reconciliation pass that removes index entries whose files no longer
// exist on disk.
func (s *Service) Watch(ctx context.Context, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := s.store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			s.reconcileAfterRename(logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					// A new type dir or partition may already contain
					// files (e.g. restored from a backup).
					s.indexNewDir(root, absPath, logger, cb)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			typeName, id, ok := s.resolvePath(root, absPath)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				if s.reindexFile(typeName, id, logger) && cb != nil {
					cb(kind, typeName, id)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := s.db.DeleteItem(typeName, id); delErr != nil {
					logger.Warn("watcher: delete failed",
						slog.String("item", typeName+"-"+id),
						slog.String("error", delErr.Error()))
					continue
				}
				if cb != nil {
					cb("deleted", typeName, id)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new
				// path arrives as a separate Create event. Drop the old
				// entry now and schedule a reconciliation pass for
				// stragglers.
				if delErr := s.db.DeleteItem(typeName, id); delErr == nil && cb != nil {
					cb("deleted", typeName, id)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// resolvePath maps an absolute file path back to (type, id): the first path
// segment under the root is the type directory, the filename carries the
// prefix and id. Files for unknown types are ignored.
func (s *Service) resolvePath(root, absPath string) (typeName, id string, ok bool) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	typeName = parts[0]
	info, err := s.resolveType(typeName)
	if err != nil {
		return "", "", false
	}
	id, ok = storage.IDFromFilename(models.FileConfig(info), parts[len(parts)-1])
	return typeName, id, ok
}

// reindexFile loads, decodes, and re-projects one item file, skipping
// files whose checksum is unchanged. Reports whether the index mutated.
func (s *Service) reindexFile(typeName, id string, logger *slog.Logger) bool {
	info, err := s.resolveType(typeName)
	if err != nil {
		return false
	}
	data, err := s.store.Load(models.FileConfig(info), id)
	if err != nil {
		logger.Warn("watcher: read failed",
			slog.String("item", typeName+"-"+id),
			slog.String("error", err.Error()))
		return false
	}
	checksums, err := s.db.Checksums(typeName)
	if err == nil && checksums[id] == checksum.Sum(data) {
		return false
	}
	it, err := s.decodeItem(info, id, data)
	if err != nil {
		logger.Warn("watcher: decode failed",
			slog.String("item", typeName+"-"+id),
			slog.String("error", err.Error()))
		return false
	}
	if it.Title == "" {
		logger.Warn("watcher: skipping item without title",
			slog.String("item", typeName+"-"+id))
		return false
	}
	if err := s.project(it, data); err != nil {
		logger.Warn("watcher: projection failed",
			slog.String("item", typeName+"-"+id),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// reconcileAfterRename diffs disk against the index for every known type
// and removes stale entries / indexes new ones.
func (s *Service) reconcileAfterRename(logger *slog.Logger, cb EventCallback) {
	names := models.BuiltinTypeNames()
	if defs, err := s.db.ListTypes(); err == nil {
		for _, def := range defs {
			names = append(names, def.Name)
		}
	}
	for _, name := range names {
		info, err := s.resolveType(name)
		if err != nil {
			continue
		}
		cfg := models.FileConfig(info)

		ids, err := s.store.List(cfg, "")
		if err != nil {
			logger.Warn("reconcile: list failed",
				slog.String("type", name),
				slog.String("error", err.Error()))
			continue
		}
		disk := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			disk[id] = struct{}{}
		}

		indexed, err := s.db.IDsByType(name)
		if err != nil {
			continue
		}
		for id := range indexed {
			if _, ok := disk[id]; !ok {
				if delErr := s.db.DeleteItem(name, id); delErr == nil && cb != nil {
					cb("deleted", name, id)
				}
			}
		}
		for _, id := range ids {
			if _, ok := indexed[id]; ok {
				continue
			}
			if s.reindexFile(name, id, logger) && cb != nil {
				cb("created", name, id)
			}
		}
	}
}

// indexNewDir indexes any item files found in a newly created directory.
func (s *Service) indexNewDir(root, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		typeName, id, ok := s.resolvePath(root, path)
		if !ok {
			return nil
		}
		if s.reindexFile(typeName, id, logger) && cb != nil {
			cb("created", typeName, id)
		}
		return nil
	})
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
