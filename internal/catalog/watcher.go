package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a catalog whenever its override file is written.
// A file that fails to parse is logged and the previous catalog is kept.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	catalog  *Catalog
	logger   *log.Logger
	onReload func()
}

// NewWatcher watches path (through its directory, so editors that replace
// the file on save are seen too) and refreshes cat on change.
func NewWatcher(path string, cat *Catalog, logger *log.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{watcher: fw, path: abs, catalog: cat, logger: logger}, nil
}

// OnReload registers a callback run after each successful reload.
func (w *Watcher) OnReload(fn func()) { w.onReload = fn }

// Run processes file events until ctx is done or the watcher is closed.
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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name, _ := filepath.Abs(event.Name)
			if name != w.path {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", "err", err)
		}
	}
}

func (w *Watcher) reload() {
	items, err := readFile(w.path)
	if err != nil {
		w.logger.Warn("catalog reload failed, keeping previous", "path", w.path, "err", err)
		return
	}
	w.catalog.Replace(items)
	w.logger.Info("catalog reloaded", "path", w.path, "types", len(w.catalog.Items()))
	if w.onReload != nil {
		w.onReload()
	}
}

// Close stops the watcher; Run returns soon after.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
