// Package watch re-runs a handler when input files change on disk.
package watch

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler receives the files that changed since the last call, sorted.
type Handler func(changed []string)

// Watcher watches a set of files. It watches their directories rather than
// the files themselves so that editors replacing a file by rename are still
// seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

// New starts watching paths. Events are coalesced until no change has been
// seen for debounce. log may be nil.
func New(paths []string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{fs: fsw, debounce: debounce, log: log, dirs: make(map[string]bool)}
	if err := w.Set(paths); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Set replaces the watched files. It may be called from a Handler.
func (w *Watcher) Set(paths []string) error {
	files := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for dir := range dirs {
		if w.dirs[dir] {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	for dir := range w.dirs {
		if !dirs[dir] {
			if err := w.fs.Remove(dir); err != nil {
				w.log.Debug("unwatching directory", zap.String("dir", dir), zap.Error(err))
			}
			delete(w.dirs, dir)
		}
	}
	w.files = files
	return nil
}

// Close stops watching. Run returns once the watcher is closed.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) relevant(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return false
	}
	abs, err := filepath.Abs(e.Name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs]
}

// Run delivers changes to h until ctx is done or the watcher is closed.
// h runs on Run's goroutine, so changes during a call are batched into the
// next one.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(e) {
				continue
			}
			w.log.Debug("input changed", zap.String("file", e.Name), zap.Stringer("op", e.Op))
			abs, _ := filepath.Abs(e.Name)
			pending[abs] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-fire:
			fire = nil
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			h(changed)
		}
	}
}
