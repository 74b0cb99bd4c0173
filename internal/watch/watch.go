// Package watch re-runs a function whenever the manifests it reads
// change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/operator-framework/deployfix/internal/loader"
)

const DefaultDelay = 200 * time.Millisecond

type Watcher struct {
	delay time.Duration
	log   logr.Logger
	// files holds the watched regular files, dirs the watched
	// directories. Files are watched through their parent directory so
	// that editors replacing them by rename are noticed.
	files map[string]struct{}
	dirs  map[string]struct{}
}

type Option func(w *Watcher)

// WithDelay sets how long the watcher waits for events to settle
// before running again.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.delay = d
	}
}

func WithLogger(log logr.Logger) Option {
	return func(w *Watcher) {
		w.log = log
	}
}

func New(options ...Option) *Watcher {
	w := &Watcher{
		delay: DefaultDelay,
		log:   logr.Discard(),
		files: map[string]struct{}{},
		dirs:  map[string]struct{}{},
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Run calls fn once, then again after every burst of changes to paths,
// until ctx is done. Errors returned by fn are logged and do not stop
// the watch. Paths that are not files or directories, standard input
// included, are ignored.
func (w *Watcher) Run(ctx context.Context, paths []string, fn func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		dir := path
		if info.IsDir() {
			w.dirs[filepath.Clean(path)] = struct{}{}
		} else {
			w.files[filepath.Clean(path)] = struct{}{}
			dir = filepath.Dir(path)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.run(ctx, fn)

	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.V(1).Info("manifest changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.delay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error(err, "watch error")
		case <-timer.C:
			w.run(ctx, fn)
		}
	}
}

func (w *Watcher) run(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		w.log.Error(err, "analysis failed")
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	if _, ok := w.files[name]; ok {
		return true
	}
	if _, ok := w.dirs[filepath.Dir(name)]; ok {
		return loader.IsManifest(name)
	}
	return false
}
