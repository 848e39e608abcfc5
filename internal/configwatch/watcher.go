// Package configwatch hot-reloads the YAML config file graphd was started
// with and hands each reloaded Config to a callback. graphd's serve command
// uses it to reapply logging categories and debug mode; stores, the
// checkpoint runner and the validator keep the settings they were built with.
package configwatch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/logging"
)

const debounce = 500 * time.Millisecond

// Watcher watches one config file and invokes onReload with the freshly
// parsed config after each settled write.
type Watcher struct {
	path     string
	onReload func(*config.Config)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New builds a Watcher for path. onReload is called from the watcher's own
// goroutine; callers that mutate shared state from it must synchronize.
func New(path string, onReload func(*config.Config)) *Watcher {
	return &Watcher{path: path, onReload: onReload}
}

// Start begins watching in a background goroutine. Non-blocking.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	// Watch the containing directory: editors commonly replace the file via
	// rename-on-save, which a direct file watch would silently stop seeing.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		w.mu.Unlock()
		return err
	}

	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	go w.run()
	return nil
}

// Stop releases the underlying watcher and waits for the run loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh := w.stopCh
	doneCh := w.doneCh
	fsw := w.fsw
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
	_ = fsw.Close()
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	target := filepath.Clean(w.path)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warnf(logging.CategoryBoot, "config watcher error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := config.Load(w.path)
	if err != nil {
		logging.Warnf(logging.CategoryBoot, "config reload from %s failed, keeping previous config: %v", w.path, err)
		return
	}
	logging.Infof(logging.CategoryBoot, "reloaded config from %s", w.path)
	w.onReload(cfg)
}
