package catalog

import (
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/fsnotify.v1"
)

// Watcher reloads a catalog directory whenever one of its YAML files
// changes. Each reload produces a fresh Catalog merged over the base; the
// catalog handed to a running link pass is never modified.
type Watcher struct {
	dir      string
	base     *Catalog
	logger   *slog.Logger
	onChange func(*Catalog)

	mu       sync.Mutex
	current  *Catalog
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
}

// NewWatcher creates a watcher for dir. The initial catalog is loaded
// immediately.
func NewWatcher(dir string, base *Catalog, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{dir: dir, base: base, logger: logger}
	if err := w.reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// SetOnChange registers a callback invoked with every reloaded catalog.
func (w *Watcher) SetOnChange(fn func(*Catalog)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Current returns the most recently loaded catalog.
func (w *Watcher) Current() *Catalog {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Watcher) reload() error {
	loaded, err := LoadDir(w.dir)
	if err != nil {
		return err
	}
	merged, err := w.base.Merge(loaded)
	if err != nil {
		return fmt.Errorf("merging catalog %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.current = merged
	fn := w.onChange
	w.mu.Unlock()

	if fn != nil {
		fn(merged)
	}
	return nil
}

// Start begins watching the directory.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	w.watcher = watcher
	w.stopChan = make(chan struct{})

	go w.watchLoop(watcher, w.stopChan)

	if err := watcher.Add(w.dir); err != nil {
		w.watcher.Close()
		return fmt.Errorf("watching directory %s: %w", w.dir, err)
	}
	return nil
}

func (w *Watcher) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isYAML(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.reload(); err != nil {
				w.logger.Warn("catalog reload failed", "dir", w.dir, "file", event.Name, "error", err)
				continue
			}
			w.logger.Info("catalog reloaded", "dir", w.dir, "file", event.Name, "statutes", w.Current().Len())

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", "dir", w.dir, "error", err)
		}
	}
}

// Stop stops watching.
func (w *Watcher) Stop() {
	if w.stopChan != nil {
		close(w.stopChan)
		w.stopChan = nil
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
}
