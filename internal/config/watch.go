package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes and passes each valid result to
// onChange after applying environment overrides. Invalid files are reported to onError and otherwise ignored.
// Watch blocks until ctx is done.
//
// The directory is watched rather than the file so editors that replace
// the file by rename are handled.
func Watch(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger := slog.Default().With("component", "config")
	logger.Debug("watching config", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := LoadFile(abs)
			if err == nil {
				err = cfg.ApplyEnv(os.LookupEnv)
			}
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				logger.Warn("config reload failed", "path", abs, "error", err)
				if onError != nil {
					onError(err)
				}
				continue
			}
			logger.Info("config reloaded", "path", abs)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
