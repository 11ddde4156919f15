package catalog

import (
	"log/slog"
	"path"

	"github.com/starford/livepad/internal/checksum"
	"github.com/starford/livepad/internal/parser"
	"github.com/starford/livepad/internal/storage"
)

// Entry parses a file's content into the catalog representation.
func Entry(fileName string, data []byte) FileEntry {
	res := parser.Parse(fileName, data)
	return FileEntry{
		FileName: fileName,
		Title:    res.Title,
		Checksum: checksum.Sum(data),
		Body:     res.Body,
		Links:    res.Links,
	}
}

// Sync walks every project directory and brings the catalog up to date.
// Per-project failures are logged and do not stop the pass.
func Sync(db Catalog, store storage.Provider, logger *slog.Logger) error {
	ids, err := db.ProjectIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := SyncProject(db, store, id, logger, nil); err != nil {
			logger.Warn("sync: project failed", slog.Int64("project_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

// SyncProject reconciles one project's catalog rows with its directory:
//   - new/changed files are parsed and upserted
//   - rows whose file vanished from disk are deleted
//
// It returns the number of changes and reports each one to cb when non-nil.
func SyncProject(db Catalog, store storage.Provider, projectID int64, logger *slog.Logger, cb EventCallback) (int, error) {
	dir := storage.ProjectDir(projectID)
	metas, err := store.List(dir)
	if err != nil {
		return 0, err
	}
	checksums, err := db.AllChecksums(projectID)
	if err != nil {
		return 0, err
	}

	changes := 0
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if path.Dir(m.Path) != dir {
			continue // nested directories are not part of a project
		}
		name := path.Base(m.Path)
		disk[name] = struct{}{}
		old, known := checksums[name]
		if known && old == m.Checksum {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := db.IndexFile(projectID, Entry(name, data)); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		changes++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
		if cb != nil {
			kind := EventUpdated
			if !known {
				kind = EventCreated
			}
			cb(kind, projectID, name)
		}
	}

	for name := range checksums {
		if _, ok := disk[name]; ok {
			continue
		}
		if err := db.DeleteFileByName(projectID, name); err != nil {
			logger.Warn("sync: delete failed", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		changes++
		logger.Debug("sync: removed stale", slog.Int64("project_id", projectID), slog.String("file", name))
		if cb != nil {
			cb(EventDeleted, projectID, name)
		}
	}
	return changes, nil
}
