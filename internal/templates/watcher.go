package templates

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called after a template file changed on disk.
// kind is one of "created", "updated", "deleted".
type ChangeCallback func(kind, path string)

// Watch watches dirs (recursively) until ctx is cancelled. Every change to a
// .md file drops that file's memoised template and calls cb if non-nil.
// Directories that do not exist are skipped.
func (l *Loader) Watch(ctx context.Context, logger *slog.Logger, cb ChangeCallback, dirs ...string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, statErr := os.Stat(dir); statErr != nil {
			logger.Debug("templates: watch dir skipped", slog.String("dir", dir))
			continue
		}
		if err := addDirsRecursive(w, dir); err != nil {
			return err
		}
	}

	logger.Info("templates: watcher started", slog.Any("dirs", dirs))

	for {
		select {
		case <-ctx.Done():
			logger.Info("templates: watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("templates: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			var kind string
			switch {
			case ev.Op&fsnotify.Create != 0:
				kind = "created"
			case ev.Op&fsnotify.Write != 0:
				kind = "updated"
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				kind = "deleted"
			default:
				continue
			}

			l.Invalidate(absPath)
			logger.Debug("templates: changed", slog.String("path", absPath), slog.String("op", kind))
			if cb != nil {
				cb(kind, absPath)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("templates: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
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
