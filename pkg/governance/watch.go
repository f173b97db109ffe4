package governance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch hot-reloads the gate from an override pattern file whenever it
// changes on disk. The watcher runs until ctx is cancelled. A missing file
// is not an error; the gate keeps its current ruleset until the file
// appears. A file that fails to parse is logged and skipped, keeping the
// previous ruleset in effect.
func Watch(ctx context.Context, gate *Gate, path string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating pattern watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save and
	// a watch on the old inode would go stale.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching pattern dir: %w", err)
	}

	reload := func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("failed to read governance override", "path", path, "error", err)
			}
			return
		}
		if err := gate.Reload(raw); err != nil {
			logger.Warn("governance override rejected, keeping previous ruleset",
				"path", path, "error", err)
			return
		}
		logger.Info("governance ruleset reloaded", "path", path, "rules", gate.RuleCount())
	}

	reload()

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("pattern watcher error", "error", err)
			}
		}
	}()

	return nil
}
