package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a dataset file whenever it is written or replaced.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	onLoad  func(*Dataset)
	logger  *slog.Logger
}

// NewWatcher watches the directory holding path. onLoad receives every
// successfully reloaded dataset. A nil logger uses slog.Default().
func NewWatcher(path string, onLoad func(*Dataset), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve dataset path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	// Editors replace files by rename, so the directory is watched, not the file.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()

		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:    abs,
		watcher: fw,
		onLoad:  onLoad,
		logger:  logger,
	}, nil
}

// Run processes file events until ctx is done. Load errors are logged and the
// previous dataset stays in effect.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.reload(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.WarnContext(ctx, "dataset watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	ds, err := Load(w.path)
	if err != nil {
		w.logger.WarnContext(ctx, "dataset reload failed, keeping previous", "path", w.path, "error", err)

		return
	}

	w.logger.InfoContext(ctx, "dataset reloaded",
		"path", w.path, "series", len(ds.Series), "interval_sets", len(ds.Intervals))
	w.onLoad(ds)
}
