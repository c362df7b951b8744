// Package configwatcher hot-reloads a coil.Config file and hands the
// reloaded value to a caller-supplied callback, via an fsnotify-backed
// file watch.
package configwatcher

import (
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Noah018dev/coil/coil"
	"github.com/Noah018dev/coil/coil/coillog"
)

// debounce coalesces the handful of fsnotify events a single file write
// typically produces (WRITE, then often CHMOD) into one reload.
const debounce = 200 * time.Millisecond

// Watcher reloads a config file on every write and hands the result to
// OnReload.
type Watcher struct {
	path     string
	OnReload func(*coil.Config)
	logger   coillog.Logger

	fsWatcher *fsnotify.Watcher
	done      chan struct{}
}

// NewWatcher returns a Watcher for path. OnReload is called on its own
// goroutine with every successfully reloaded Config; a reload that fails
// to parse is logged and skipped, leaving the prior Config in effect.
func NewWatcher(path string, onReload func(*coil.Config), logger coillog.Logger) *Watcher {
	if logger == nil {
		logger = coillog.NewNoop()
	}
	return &Watcher{path: path, OnReload: onReload, logger: logger, done: make(chan struct{})}
}

// Start begins watching. It returns once the underlying fsnotify watcher
// is installed; event handling runs on a background goroutine until
// Stop is called.
func (w *Watcher) Start() error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsWatcher.Add(w.path); err != nil {
		fsWatcher.Close()
		return err
	}
	w.fsWatcher = fsWatcher

	go w.run()
	return nil
}

// Stop ends the watch goroutine and releases the fsnotify watcher.
func (w *Watcher) Stop() {
	close(w.done)
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
}

func (w *Watcher) run() {
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "path", w.path, "error", err)

		case <-reload:
			cfg, err := coil.LoadConfigFile(w.path)
			if err != nil {
				w.logger.Warn("config reload failed, keeping prior config", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("config reloaded", "path", w.path)
			if w.OnReload != nil {
				w.OnReload(cfg)
			}
		}
	}
}
