// Package watch triggers republish runs when local artifact sources change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Func is invoked once per settled burst of filesystem changes.
type Func func(ctx context.Context)

// Watcher monitors a set of local artifact paths. Changes are debounced so
// an editor save burst or a build writing many files triggers one callback,
// not dozens.
type Watcher struct {
	fsw      *fsnotify.Watcher
	paths    []string // absolute artifact roots (files or directories)
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a Watcher over the given artifact paths. Files are watched
// via their parent directory because editors typically replace files by
// rename, which drops a direct file watch.
func New(paths []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths to watch")
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		logger:   logger,
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.paths = append(w.paths, abs)

		info, err := os.Stat(abs)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		if info.IsDir() {
			if err := w.addTree(abs); err != nil {
				fsw.Close()
				return nil, err
			}
		} else {
			if err := fsw.Add(filepath.Dir(abs)); err != nil {
				fsw.Close()
				return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
			}
		}
	}

	return w, nil
}

// addTree registers root and all its subdirectories.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// relevant reports whether an event path belongs to a watched artifact.
// Watching a file's parent directory picks up sibling churn that must be
// filtered out.
func (w *Watcher) relevant(name string) bool {
	for _, p := range w.paths {
		if name == p || strings.HasPrefix(name, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Run blocks until ctx is cancelled, invoking fn after each debounced burst
// of changes. The callback runs on the watch goroutine, so a publish in
// flight naturally delays the next trigger.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch event channel closed")
			}
			if event.Op&fsnotify.Chmod != 0 && event.Op&^fsnotify.Chmod == 0 {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}

			// New subdirectories inside a watched tree need their own watch
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fsw.Add(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			if pending {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch error channel closed")
			}
			w.logger.Error("watch error", "error", err)

		case <-timer.C:
			pending = false
			fn(ctx)
		}
	}
}
