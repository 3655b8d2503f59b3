package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange each time the store file is created, written, or
// replaced, whether by this process or another. It runs until ctx is
// cancelled.
//
// The parent directory is watched rather than the file itself because
// Upsert replaces the file by rename, which would orphan a file watch.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return ioErr("create directory", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("store watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir()); err != nil {
		return fmt.Errorf("store watch %q: %w", s.dir(), err)
	}

	target := filepath.Clean(s.path)
	slog.Info("store: watching for changes", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("store: watcher error", "err", err)
		}
	}
}
