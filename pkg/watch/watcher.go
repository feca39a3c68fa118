// Package watch reports batches of changed source files under a set of
// directory trees.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sambeau/streamline/pkg/logger"
)

// Handler receives the files changed during one quiet period, sorted.
type Handler func(ctx context.Context, paths []string)

// Options selects which files count and how long to wait for changes to
// settle.
type Options struct {
	Extensions []string      // e.g. ".java"; matched case-insensitively
	Debounce   time.Duration // default 200ms
}

// Watcher monitors directory trees and hands settled changes to a handler.
type Watcher struct {
	watcher  *fsnotify.Watcher
	roots    []string
	exts     map[string]bool
	debounce time.Duration
	handle   Handler
	log      *logger.Logger

	pending map[string]bool
}

// New starts watching roots and every directory below them. Hidden
// directories are skipped.
func New(roots []string, opts Options, handle Handler, log *logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Nop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		roots:    roots,
		exts:     make(map[string]bool),
		debounce: opts.Debounce,
		handle:   handle,
		log:      log.WithComponent("watch"),
		pending:  make(map[string]bool),
	}
	if w.debounce <= 0 {
		w.debounce = 200 * time.Millisecond
	}
	for _, ext := range opts.Extensions {
		w.exts[strings.ToLower(ext)] = true
	}

	for _, root := range roots {
		if err := w.watchDirRecursive(root, false); err != nil {
			fsWatcher.Close()
			return nil, err
		}
		w.log.Info("watching", logger.Fields(logger.FieldFile, root))
	}
	return w, nil
}

// Matches reports whether path has one of the watched extensions.
func (w *Watcher) Matches(path string) bool {
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

// watchDirRecursive adds a directory and its subdirectories to the watch
// list. With collect set, matching files found on the way become pending;
// files created together with a new directory produce no events of their
// own.
func (w *Watcher) watchDirRecursive(root string, collect bool) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		if collect && w.Matches(path) {
			w.pending[path] = true
		}
		return nil
	})
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.observe(event) {
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			w.flush(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", logger.Fields(logger.FieldReason, err.Error()))
		}
	}
}

// observe records event and reports whether anything became pending.
func (w *Watcher) observe(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") {
				return false
			}
			before := len(w.pending)
			if err := w.watchDirRecursive(event.Name, true); err != nil {
				w.log.Warn("cannot watch new directory", logger.Fields(logger.FieldFile, event.Name, logger.FieldReason, err.Error()))
			}
			return len(w.pending) > before
		}
	}
	if !w.Matches(event.Name) {
		return false
	}
	w.pending[event.Name] = true
	return true
}

func (w *Watcher) flush(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	clear(w.pending)
	w.log.Debug("changed", logger.Fields("files", len(paths)))
	w.handle(ctx, paths)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
