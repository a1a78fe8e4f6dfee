package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// OptionsEvent reports a reload of the options file.
type OptionsEvent struct {
	Path    string
	Options Options
	Error   error
}

// OptionsWatcher reloads an OptionsStore whenever its file changes on disk, so a
// key saved by another tool takes effect on the next tick.
type OptionsWatcher struct {
	store    *OptionsStore
	watcher  *fsnotify.Watcher
	events   chan OptionsEvent
	debounce time.Duration
	stopOnce sync.Once
}

// NewOptionsWatcher creates a watcher for store's file.
func NewOptionsWatcher(store *OptionsStore) (*OptionsWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &OptionsWatcher{
		store:    store,
		watcher:  fsWatcher,
		events:   make(chan OptionsEvent, 10),
		debounce: 100 * time.Millisecond,
	}, nil
}

// Events returns the channel that receives reload events.
func (w *OptionsWatcher) Events() <-chan OptionsEvent {
	return w.events
}

// Start watches the directory holding the options file. Editors and our own
// atomic save replace the file, so the directory is watched rather than the file.
func (w *OptionsWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.store.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	go w.run(ctx)
	return nil
}

// Stop closes the watcher. The events channel is closed once the loop exits.
func (w *OptionsWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

func (w *OptionsWatcher) run(ctx context.Context) {
	defer close(w.events)

	target := filepath.Clean(w.store.Path())
	var pending time.Time
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.Now()
			} else if event.Op&fsnotify.Remove != 0 {
				w.emit(ctx, OptionsEvent{Path: target, Options: w.store.Get(), Error: fmt.Errorf("options file removed: %s", target)})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.emit(ctx, OptionsEvent{Error: err})

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < w.debounce {
				continue
			}
			pending = time.Time{}
			opts, err := w.store.Reload()
			if os.IsNotExist(err) {
				// Rename half of an atomic save; the Create that follows reloads.
				continue
			}
			w.emit(ctx, OptionsEvent{Path: target, Options: opts, Error: err})
		}
	}
}

func (w *OptionsWatcher) emit(ctx context.Context, ev OptionsEvent) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
