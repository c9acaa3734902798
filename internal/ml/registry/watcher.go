package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"vetml/pkg/logger"
)

// Watcher marks the artifact tree dirty when any species directory changes.
// It never reloads by itself; the reload worker polls Dirty.
type Watcher struct {
	w     *fsnotify.Watcher
	dirty atomic.Bool
	log   *logger.Logger
}

// NewWatcher watches every existing base directory and its species subdirectories.
// Directories that do not exist are skipped.
func NewWatcher(dirs []string, log *logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{w: fw, log: log.Component("model_watcher")}
	for _, base := range dirs {
		w.add(base)
		children, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, c := range children {
			if c.IsDir() {
				w.add(filepath.Join(base, c.Name()))
			}
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) {
	if err := w.w.Add(path); err != nil {
		w.log.Debugw("Not watching", "path", path, "error", err)
		return
	}
	w.log.Debugw("Watching", "path", path)
}

// Run consumes events until ctx is done
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.w.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.add(event.Name)
				}
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			w.log.Debugw("Artifact changed", "path", event.Name, "op", event.Op.String())
			w.dirty.Store(true)
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Warnw("Watch error", "error", err)
		}
	}
}

// Dirty reports and clears the changed flag
func (w *Watcher) Dirty() bool {
	return w.dirty.Swap(false)
}

// MarkDirty forces the next Dirty call to report a change
func (w *Watcher) MarkDirty() {
	w.dirty.Store(true)
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.w.Close()
}
