package itemservice

import (
	"log/slog"

	"github.com/starford/lagu/internal/checksum"
	"github.com/starford/lagu/internal/models"
)

// Rebuild re-derives the index projection for a type entirely from the
// authoritative files: every file is decoded and re-projected, and index
// rows whose file no longer exists are removed. It is the recovery path
// when the index is lost or a projection failed after a file write.
// Files without a title are skipped with a warning, not fatally.
// Returns the number of items projected.
func (s *Service) Rebuild(typeName string) (int, error) {
	info, err := s.resolveType(typeName)
	if err != nil {
		return 0, err
	}
	cfg := models.FileConfig(info)

	var ids []string
	if cfg.DatePartitioned {
		partitions, err := s.store.ListPartitions(cfg)
		if err != nil {
			return 0, err
		}
		for _, part := range partitions {
			partIDs, err := s.store.List(cfg, part)
			if err != nil {
				return 0, err
			}
			ids = append(ids, partIDs...)
		}
	} else {
		if ids, err = s.store.List(cfg, ""); err != nil {
			return 0, err
		}
	}

	checksums, err := s.db.Checksums(typeName)
	if err != nil {
		return 0, err
	}

	onDisk := make(map[string]struct{}, len(ids))
	count := 0
	for _, id := range ids {
		onDisk[id] = struct{}{}

		data, err := s.store.Load(cfg, id)
		if err != nil {
			s.logger.Warn("rebuild: read failed",
				slog.String("type", typeName),
				slog.String("id", id),
				slog.String("error", err.Error()))
			continue
		}
		if checksums[id] == checksum.Sum(data) {
			continue
		}
		it, err := s.decodeItem(info, id, data)
		if err != nil {
			s.logger.Warn("rebuild: decode failed",
				slog.String("type", typeName),
				slog.String("id", id),
				slog.String("error", err.Error()))
			continue
		}
		if it.Title == "" {
			s.logger.Warn("rebuild: skipping item without title",
				slog.String("type", typeName),
				slog.String("id", id))
			continue
		}
		if err := s.project(it, data); err != nil {
			s.logger.Warn("rebuild: projection failed",
				slog.String("type", typeName),
				slog.String("id", id),
				slog.String("error", err.Error()))
			continue
		}
		count++
	}

	// Remove index rows whose file is gone.
	indexed, err := s.db.IDsByType(typeName)
	if err != nil {
		return count, err
	}
	for id := range indexed {
		if _, ok := onDisk[id]; ok {
			continue
		}
		if err := s.db.DeleteItem(typeName, id); err != nil {
			s.logger.Warn("rebuild: stale removal failed",
				slog.String("type", typeName),
				slog.String("id", id),
				slog.String("error", err.Error()))
		}
	}

	return count, nil
}

// RebuildAll rebuilds every known type: the built-ins plus every registered
// custom type.
func (s *Service) RebuildAll() error {
	names := make(map[string]struct{})
	for _, name := range models.BuiltinTypeNames() {
		names[name] = struct{}{}
	}
	defs, err := s.db.ListTypes()
	if err != nil {
		return err
	}
	for _, def := range defs {
		names[def.Name] = struct{}{}
	}
	for name := range names {
		if _, err := s.Rebuild(name); err != nil {
			s.logger.Warn("rebuild failed",
				slog.String("type", name),
				slog.String("error", err.Error()))
		}
	}
	return nil
}
