package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/gonewton/constraint/pkg/core"
)

const (
	debounceDelay = 50 * time.Millisecond
	eventBuffer   = 64
)

// Watch reports record changes under the constraints root until ctx is cancelled.
//
// Bursts of filesystem events for the same file are coalesced, and the final
// state on disk decides the event: a loadable file yields Create or Modify with the
// record attached, an unloadable one carries the failure in Event.Err, and a
// vanished file yields Delete.
func (r *Repository) Watch(ctx context.Context) (<-chan core.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &watchLoop{
		repo:    r,
		watcher: watcher,
		out:     make(chan core.Event, eventBuffer),
		known:   make(map[string]bool),
		pending: make(map[string]time.Time),
	}
	if err := w.addTree(); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	r.setWatcherActive(true)

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		r.config.Logger.Error("watcher stopped", "error", err)
		if r.config.ErrorHandler != nil {
			r.config.ErrorHandler(fmt.Errorf("watcher: %w", err))
		}
	}))

	return w.out, nil
}

type watchLoop struct {
	repo    *Repository
	watcher *fsnotify.Watcher
	out     chan core.Event

	// known holds record paths that currently exist; it separates creates from modifies.
	known map[string]bool
	// pending maps a record path to the time of its latest raw event.
	pending map[string]time.Time
}

// addTree watches the root and every category directory, and records existing files.
func (w *watchLoop) addTree() error {
	root := w.repo.Path
	if err := w.watcher.Add(root); err != nil {
		return &core.IOError{Op: "watch", Path: root, Err: err}
	}
	cats, err := w.repo.Categories(context.Background())
	if err != nil {
		return err
	}
	for _, cat := range cats {
		if err := w.addCategory(filepath.Join(root, cat), false); err != nil {
			return err
		}
	}
	return nil
}

// addCategory starts watching dir. Files already inside are remembered, or
// queued as new when the directory appeared while watching.
func (w *watchLoop) addCategory(dir string, queue bool) error {
	if err := w.watcher.Add(dir); err != nil {
		return &core.IOError{Op: "watch", Path: dir, Err: err}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &core.IOError{Op: "readdir", Path: dir, Err: err}
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if _, _, ok := w.repo.parseRecordPath(path); !ok {
			continue
		}
		if queue {
			w.pending[path] = time.Now()
		} else {
			w.known[path] = true
		}
	}
	return nil
}

func (w *watchLoop) run(ctx context.Context) (err error) {
	logger := w.repo.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer close(w.out)
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()

	ticker := time.NewTicker(debounceDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			w.observe(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			logger.Error("fsnotify error", "error", wErr)
			if w.repo.config.ErrorHandler != nil {
				w.repo.config.ErrorHandler(wErr)
			}

		case now := <-ticker.C:
			if !w.flush(ctx, now) {
				return nil
			}
		}
	}
}

// observe queues record paths and picks up category directories created after Watch started.
func (w *watchLoop) observe(ctx context.Context, event fsnotify.Event) {
	w.repo.config.Logger.DebugContext(ctx, "event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == filepath.Clean(w.repo.Path) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && core.ValidCategory(info.Name()) {
			if err := w.addCategory(event.Name, true); err != nil {
				w.repo.config.Logger.WarnContext(ctx, "failed to watch category", "path", event.Name, "error", err)
			}
			return
		}
	}

	if _, _, ok := w.repo.parseRecordPath(event.Name); !ok {
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}
	w.pending[event.Name] = time.Now()
}

// flush emits events for paths that have been quiet for debounceDelay.
// It returns false when ctx ended while sending.
func (w *watchLoop) flush(ctx context.Context, now time.Time) bool {
	for path, last := range w.pending {
		if now.Sub(last) < debounceDelay {
			continue
		}
		delete(w.pending, path)

		event, ok := w.resolve(ctx, path)
		if !ok {
			continue
		}
		select {
		case w.out <- event:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// resolve inspects the current state of path and builds the matching event.
func (w *watchLoop) resolve(ctx context.Context, path string) (core.Event, bool) {
	category, id, _ := w.repo.parseRecordPath(path)
	event := core.Event{ID: id, Category: category, Timestamp: time.Now().UTC()}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if !w.known[path] {
			return core.Event{}, false
		}
		delete(w.known, path)
		event.Type = core.EventDelete
		return event, true
	}

	event.Type = core.EventCreate
	if w.known[path] {
		event.Type = core.EventModify
	}
	w.known[path] = true

	c, err := w.repo.loadFile(path)
	if err != nil {
		w.repo.skip(ctx, path, err)
		event.Err = err
		return event, true
	}
	event.Constraint = c
	return event, true
}

// parseRecordPath splits <root>/<category>/<id>.jsonl, rejecting anything else.
func (r *Repository) parseRecordPath(path string) (category, id string, ok bool) {
	name := filepath.Base(path)
	if filepath.Ext(name) != Extension {
		return "", "", false
	}
	id = strings.TrimSuffix(name, Extension)
	dir := filepath.Dir(path)
	category = filepath.Base(dir)
	if filepath.Dir(dir) != filepath.Clean(r.Path) {
		return "", "", false
	}
	if !core.ValidID(id) || !core.ValidCategory(category) {
		return "", "", false
	}
	return category, id, true
}
