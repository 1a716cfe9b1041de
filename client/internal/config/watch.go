package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch follows the tail config file at path and calls apply with the tail
// section of every valid new version written to it. A rewrite that fails to
// parse or validate is dropped and the settings already in force stay active.
// Watch blocks until ctx is cancelled.
//
// Deployment tools and most editors replace the file wholesale (write a temp
// file, rename it over the original), which swaps the watched inode, so the
// watch is re-armed on every event before reloading.
func Watch(ctx context.Context, path string, apply func(TailConfig)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tail config: watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return fmt.Errorf("tail config: watch %q: %w", path, err)
	}
	slog.Info("config: following tail config", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.Add(path) //nolint:errcheck // re-arm in case the inode was replaced

			cfg, err := Load(path)
			if err != nil {
				slog.Warn("config: ignoring bad rewrite, keeping active settings",
					"path", path, "err", err)
				continue
			}
			slog.Info("config: tail settings reloaded", "path", path)
			apply(cfg.Tail)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watch failed", "path", path, "err", err)
		}
	}
}
