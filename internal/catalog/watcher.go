package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"clarity-workers/internal/common/logger"
)

const debounceDelay = 500 * time.Millisecond

// Watcher invalidates a cache when catalog files under a directory change.
type Watcher struct {
	dir        string
	invalidate func()
	log        logger.Logger
	watcher    *fsnotify.Watcher
	delay      time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher watches dir and every subdirectory. invalidate runs once per
// burst of changes.
func NewWatcher(dir string, invalidate func(), log logger.Logger) (*Watcher, error) {
	return newWatcher(dir, invalidate, log, debounceDelay)
}

func newWatcher(dir string, invalidate func(), log logger.Logger, delay time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		dir:        dir,
		invalidate: invalidate,
		log:        log.WithFields(map[string]interface{}{"component": "catalog-watcher"}),
		watcher:    fsWatcher,
		delay:      delay,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := fsWatcher.Add(path); err != nil {
				w.log.Warn("Failed to watch directory", map[string]interface{}{"path": path, "error": err.Error()})
			}
		}
		return nil
	})
	if err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to walk catalog directory: %w", err)
	}

	go w.loop()
	return w, nil
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".hbs", ".html":
		return true
	}
	return false
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	defer w.watcher.Close()

	var timer *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !isCatalogFile(event.Name) {
				continue
			}
			w.log.Debug("Catalog file changed", map[string]interface{}{
				"file":      event.Name,
				"operation": event.Op.String(),
			})
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.delay, func() {
				w.log.Info("Reloading catalogs", nil)
				w.invalidate()
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("Catalog watcher error", map[string]interface{}{"error": err.Error()})

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) Close() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}
