package config

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reads a config file and reloads it when it changes on disk.
type Watcher struct {
	path     string
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
	log      *slog.Logger
}

// NewWatcher performs the initial load.
func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{path: path, log: log}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	w.current = cfg
	return w, nil
}

// Config returns the latest configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after every successful reload.
// Callbacks run on the watcher goroutine.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Watch starts reloading on file changes until stop is called.
func (w *Watcher) Watch() (stop func(), err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fw.Add(w.path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", w.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer fw.Close()
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := w.Reload(); err != nil {
						// Keep the old config.
						w.log.Warn("config reload failed", "path", w.path, "error", err)
					}
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.log.Warn("config watcher", "error", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload re-reads the file now and notifies the callbacks.
func (w *Watcher) Reload() (*Config, error) {
	cfg, err := LoadFile(w.path)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.current = cfg
	callbacks := make([]func(*Config), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}
