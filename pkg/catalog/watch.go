package catalog

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/courseguide/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Watch reloads the catalog at path whenever the file is written or
// replaced, and passes the rendered text to onChange. A reload that fails
// keeps the previous catalog. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(text string)) error {
	if path == "" {
		return goerr.New("catalog path is required to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return goerr.Wrap(err, "failed to create catalog watcher")
	}
	defer watcher.Close()

	// Editors often replace the file instead of writing it, so watch the
	// parent directory and filter by name.
	abs, err := filepath.Abs(path)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve catalog path", goerr.V("path", path))
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return goerr.Wrap(err, "failed to watch catalog directory", goerr.V("path", abs))
	}

	logger := logging.From(ctx).With("path", abs)
	logger.Info("watching catalog for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}

			cat, err := Load(path)
			if err != nil {
				logger.Warn("catalog reload failed, keeping previous catalog", "error", err)
				continue
			}
			logger.Info("catalog reloaded", "categories", len(cat.Categories), "courses", cat.CourseCount())
			onChange(Render(cat))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog watcher error", "error", err)
		}
	}
}
