package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mediamesh/playadvisor/internal/logger"
)

// WatchFile watches the loaded configuration file and reloads it on change.
// Reloads are debounced because editors commonly emit several write events
// for a single save. The watcher runs until ctx is cancelled.
func (cm *ConfigManager) WatchFile(ctx context.Context) error {
	path := cm.ConfigPath()
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory rather than the file: atomic-rename saves replace
	// the inode and would silently detach a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		target := filepath.Clean(path)

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(250*time.Millisecond, func() {
					if err := cm.LoadConfig(path); err != nil {
						logger.Error("config reload failed", logger.Err("error", err))
						return
					}
					logger.Info("configuration reloaded", logger.String("path", path))
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", logger.Err("error", err))
			}
		}
	}()

	return nil
}
