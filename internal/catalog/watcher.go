package catalog

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/livepad/internal/apperr"
	"github.com/starford/livepad/internal/storage"
)

// Watcher event kinds.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven catalog change.
type EventCallback func(kind string, projectID int64, fileName string)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the storage root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful catalog mutation.
//
// Project directories created at runtime are added to the watch list.
// Rename events trigger a debounced reconciliation of the affected project.
func Watch(ctx context.Context, db Catalog, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addProjectDirs(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	pending := make(map[int64]struct{})
	scheduleReconcile := func(projectID int64) {
		pending[projectID] = struct{}{}
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
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
			for id := range pending {
				if _, err := SyncProject(db, store, id, logger, cb); err != nil {
					logger.Warn("reconcile: failed", slog.Int64("project_id", id), slog.String("error", err.Error()))
				}
				delete(pending, id)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			handleEvent(ev, w, db, store, root, logger, cb, scheduleReconcile)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func handleEvent(ev fsnotify.Event, w *fsnotify.Watcher, db Catalog, store storage.Provider, root string,
	logger *slog.Logger, cb EventCallback, scheduleReconcile func(int64)) {
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	projectID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return
	}

	// A new project directory: watch it and pick up anything already inside.
	if len(parts) == 1 {
		if ev.Op&fsnotify.Create == 0 {
			return
		}
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if addErr := w.Add(ev.Name); addErr != nil {
				logger.Warn("watcher: add project dir failed", slog.String("path", ev.Name), slog.String("error", addErr.Error()))
				return
			}
			logger.Debug("watcher: watching project dir", slog.Int64("project_id", projectID))
			scheduleReconcile(projectID)
		}
		return
	}
	if len(parts) != 2 || storage.IsHidden(parts[1]) {
		return
	}
	name := parts[1]

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		data, readErr := store.Read(storage.FilePath(projectID, name))
		if readErr != nil {
			logger.Debug("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
			return
		}
		_, known := fileChecksum(db, projectID, name)
		if _, idxErr := db.IndexFile(projectID, Entry(name, data)); idxErr != nil {
			if errors.Is(idxErr, apperr.ErrNotFound) {
				logger.Debug("watcher: unknown project", slog.Int64("project_id", projectID))
			} else {
				logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
			}
			return
		}
		kind := EventUpdated
		if !known {
			kind = EventCreated
		}
		logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		if cb != nil {
			cb(kind, projectID, name)
		}

	case ev.Op&fsnotify.Remove != 0:
		if _, known := fileChecksum(db, projectID, name); !known {
			return
		}
		if delErr := db.DeleteFileByName(projectID, name); delErr != nil {
			logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
			return
		}
		logger.Debug("watcher: deleted", slog.String("path", rel))
		if cb != nil {
			cb(EventDeleted, projectID, name)
		}

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify fires Rename on the old path only; the new path arrives
		// as a Create. Reconcile the project shortly after to catch both.
		scheduleReconcile(projectID)
	}
}

func fileChecksum(db Catalog, projectID int64, name string) (string, bool) {
	f, err := db.GetFileByName(projectID, name)
	if err != nil {
		return "", false
	}
	return f.Checksum, true
}

// addProjectDirs adds root and its immediate project directories to the watcher.
func addProjectDirs(w *fsnotify.Watcher, root string) error {
	if err := w.Add(root); err != nil {
		return err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.ParseInt(e.Name(), 10, 64); err != nil {
			continue
		}
		if err := w.Add(filepath.Join(root, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
