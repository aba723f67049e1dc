// Package watch reports changes to form definition files.
package watch

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mark3labs/stepform/internal/logger"
)

const debounceInterval = 100 * time.Millisecond

// Watcher watches a set of files using fsnotify. Parent directories are
// watched rather than the files themselves so editors that save by
// renaming a temp file are still seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool      // absolute paths of interest
	pending map[string]time.Time // path -> last event time, not yet emitted
	changes chan string
	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
}

// New creates a watcher for paths. Call Start to begin receiving changes.
func New(paths ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &Watcher{
		watcher: w,
		files:   make(map[string]bool, len(paths)),
		pending: make(map[string]time.Time),
		changes: make(chan string, len(paths)),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		fw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	return fw, nil
}

// Start runs the event loop.
func (fw *Watcher) Start() {
	go fw.eventLoop()
	logger.Debug("Watching %d file(s)", len(fw.files))
}

// Changes delivers the absolute path of each changed file, once per burst
// of writes.
func (fw *Watcher) Changes() <-chan string {
	return fw.changes
}

// Stop shuts down the watcher and event loop.
func (fw *Watcher) Stop() error {
	close(fw.done)
	<-fw.stopped
	return fw.watcher.Close()
}

func (fw *Watcher) eventLoop() {
	defer close(fw.stopped)

	ticker := time.NewTicker(debounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)

		case now := <-ticker.C:
			for _, path := range fw.due(now) {
				select {
				case fw.changes <- path:
				case <-fw.done:
					return
				}
			}
		}
	}
}

// handleEvent records writes to watched files.
func (fw *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	path, err := filepath.Abs(event.Name)
	if err != nil || !fw.files[path] {
		return
	}

	fw.mu.Lock()
	fw.pending[path] = time.Now()
	fw.mu.Unlock()
}

// due removes and returns the paths that have been quiet for the debounce
// interval, sorted.
func (fw *Watcher) due(now time.Time) []string {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	var out []string
	for path, at := range fw.pending {
		if now.Sub(at) >= debounceInterval {
			out = append(out, path)
			delete(fw.pending, path)
		}
	}
	sort.Strings(out)
	return out
}
