package source

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/VoxDroid/tabrun/internal/logging"
)

// DefaultDebounce is how long the watcher waits for the tree to go quiet
// before reporting a change.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes below a definition root. Bursts of events (an
// editor saving, a git checkout) are collapsed into one callback.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func(path string)
	logger   *log.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for root. onChange receives the last path that
// changed in a burst and is called from the watcher goroutine.
func NewWatcher(root string, debounce time.Duration, onChange func(path string), logger *log.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		onChange: onChange,
		logger:   logging.OrDiscard(logger),
	}
}

// Start adds every directory under the root to an fsnotify watcher and
// begins delivering changes until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := addTree(fw, w.root); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.running = true
	w.logger.Info("watching definitions", "dir", w.root)

	go w.loop(ctx, fw, w.stopCh)
	return nil
}

// Stop ends the watch loop. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

// Running reports whether the watch loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, stop <-chan struct{}) {
	defer func() {
		fw.Close()
		w.mu.Lock()
		if w.watcher == fw {
			w.running = false
			w.watcher = nil
		}
		w.mu.Unlock()
	}()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := ""

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("stopping definition watcher", "reason", "context cancelled")
			timer.Stop()
			return
		case <-stop:
			w.logger.Debug("stopping definition watcher", "reason", "stop signal")
			timer.Stop()
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if hidden(filepath.Base(ev.Name)) || ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				// New directories need their own watch.
				_ = addTree(fw, ev.Name)
			}
			pending = ev.Name
			timer.Reset(w.debounce)

		case <-timer.C:
			if pending == "" {
				continue
			}
			w.logger.Info("definitions changed", "path", pending)
			if w.onChange != nil {
				w.onChange(pending)
			}
			pending = ""

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
