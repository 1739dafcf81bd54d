package replay

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Benny93/conceptmap-go/internal/logging"
)

// DebounceInterval is how long Watch waits after the last change before
// re-running the script.
const DebounceInterval = 200 * time.Millisecond

// Runner executes a freshly loaded script. A load error is passed with a nil
// script.
type Runner func(ctx context.Context, script *Script, loadErr error)

// Watch runs the script at path once and again after every change to it.
// Blocks until the context is cancelled.
//
// The parent directory is watched rather than the file so editors that save
// by renaming a temporary file are picked up.
func Watch(ctx context.Context, path string, run Runner) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	logger := logging.FromContext(ctx).With("script", abs)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	reload := func() {
		script, err := Load(abs)
		run(ctx, script, err)
	}
	reload()

	timer := time.NewTimer(DebounceInterval)
	timer.Stop()
	defer timer.Stop()

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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("script changed", "op", event.Op.String())
			timer.Reset(DebounceInterval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)

		case <-timer.C:
			reload()
		}
	}
}
