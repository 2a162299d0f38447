package integrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// HaltWatcher raises a flag once a named file appears. The parent directory
// is watched so that the file may be created after the run starts.
type HaltWatcher struct {
	Path    string
	watcher *fsnotify.Watcher
	raised  atomic.Bool
	done    chan struct{}
}

func NewHaltWatcher(path string) (hw *HaltWatcher, err error) {
	if path, err = filepath.Abs(path); err != nil {
		return
	}
	hw = &HaltWatcher{Path: path, done: make(chan struct{})}
	if hw.watcher, err = fsnotify.NewWatcher(); err != nil {
		return nil, fmt.Errorf("halt watcher: %w", err)
	}
	if err = hw.watcher.Add(filepath.Dir(path)); err != nil {
		_ = hw.watcher.Close()
		return nil, fmt.Errorf("halt watcher on %s: %w", filepath.Dir(path), err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		hw.raised.Store(true)
	}
	return
}

// Start consumes file events until ctx is done or Stop is called.
func (hw *HaltWatcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-hw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) == hw.Path && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				hw.raised.Store(true)
			}
		case _, ok := <-hw.watcher.Errors:
			if !ok {
				return
			}
		case <-ctx.Done():
			return
		case <-hw.done:
			return
		}
	}
}

// Raised reports whether the halt file has been seen.
func (hw *HaltWatcher) Raised() bool {
	if hw == nil {
		return false
	}
	return hw.raised.Load()
}

func (hw *HaltWatcher) Stop() error {
	close(hw.done)
	return hw.watcher.Close()
}
