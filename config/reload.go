package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/fuse/observe"
)

// Reloader watches a policy file and reloads it on changes. An invalid
// file never replaces the current one; the error is logged and the last
// good configuration stays active.
type Reloader struct {
	mu        sync.RWMutex
	current   *File
	path      string
	logger    observe.Logger
	callbacks []func(*File)
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewReloader creates a Reloader for the given policy file path.
func NewReloader(path string, initial *File, logger observe.Logger) *Reloader {
	if logger == nil {
		logger = observe.NewLogger("info")
	}
	return &Reloader{
		current: initial,
		path:    path,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Current returns the active configuration.
func (r *Reloader) Current() *File {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// OnReload registers a callback invoked with the new configuration after
// each successful reload.
func (r *Reloader) OnReload(fn func(*File)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

// Start begins watching the policy file for changes. Must be called once
// after NewReloader.
func (r *Reloader) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(r.path); err != nil {
		watcher.Close()
		return err
	}
	r.watcher = watcher

	r.logger.Info(context.Background(), "policy file watcher started",
		observe.Field{Key: "path", Value: r.path})

	go r.watchLoop()
	return nil
}

// Stop terminates the file watcher.
func (r *Reloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		if r.watcher != nil {
			r.watcher.Close()
		}
	})
}

// Reload loads the policy file from disk and, if valid, swaps it in and
// notifies all registered callbacks. Returns true when the reload
// succeeded. Exported so tests and signal handlers can trigger it.
func (r *Reloader) Reload() bool {
	ctx := context.Background()

	newFile, err := Load(r.path)
	if err != nil {
		r.logger.Error(ctx, "policy reload failed, keeping current configuration",
			observe.Field{Key: "path", Value: r.path},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return false
	}

	r.mu.Lock()
	r.current = newFile
	callbacks := make([]func(*File), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	for _, cb := range callbacks {
		cb(newFile)
	}

	r.logger.Info(ctx, "policy configuration reloaded",
		observe.Field{Key: "path", Value: r.path},
		observe.Field{Key: "policies", Value: len(newFile.Policies)},
	)
	return true
}

// watchLoop processes fsnotify events with debouncing; editors often
// write multiple events on save.
func (r *Reloader) watchLoop() {
	var debounce *time.Timer

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(300*time.Millisecond, func() {
					r.Reload()
				})
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error(context.Background(), "policy file watcher error",
				observe.Field{Key: "error", Value: err.Error()})
		case <-r.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}
