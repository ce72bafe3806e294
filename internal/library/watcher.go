package library

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lexa/internal/checksum"
	"github.com/starford/lexa/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// Event kinds passed to EventCallback.
const (
	EventImported = "imported"
	EventRemoved  = "removed"
)

// EventCallback is called after a watcher-driven change.
type EventCallback func(kind string, path string)

// Watch re-imports decks as they change on disk until ctx is cancelled.
//
// New directories are added to the watch list. Renames and removals trigger a debounced
// reconciliation pass, which also picks up editors that save through a temp file.
func Watch(ctx context.Context, st DeckStore, files storage.Provider, logger *slog.Logger, cb EventCallback) error {
	root := files.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}
	notify := func(kind, path string) {
		if cb != nil {
			cb(kind, path)
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
			rep, err := Sync(ctx, st, files, logger)
			if err != nil {
				logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
				continue
			}
			for _, imp := range rep.Imported {
				notify(EventImported, imp.Path)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}

			if !storage.IsDeckFile(ev.Name) {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				imp, changed := importChanged(ctx, st, files, rel, logger)
				if changed {
					logger.Debug("watcher: imported", slog.String("path", rel), slog.Int("added", imp.Added))
					notify(EventImported, rel)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Info("watcher: deck removed, progress kept", slog.String("path", rel))
				notify(EventRemoved, rel)
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

// importChanged imports rel unless its checksum matches the stored one.
func importChanged(ctx context.Context, st DeckStore, files storage.Provider, rel string, logger *slog.Logger) (*Imported, bool) {
	data, err := files.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return nil, false
	}
	known, err := st.DeckChecksums(ctx)
	if err != nil {
		logger.Warn("watcher: checksums failed", slog.String("error", err.Error()))
		return nil, false
	}
	if known[rel] == checksum.Sum(data) {
		return nil, false
	}
	imp, err := Import(ctx, st, rel, data)
	if err != nil {
		logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
		return nil, false
	}
	return imp, true
}

// addDirsRecursive adds root and its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && len(d.Name()) > 0 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
