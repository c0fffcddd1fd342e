package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ansera/internal/logger"
)

// EventType classifies a processed filesystem change.
type EventType string

const (
	// EventLoaded means a file was parsed and its snippets upserted.
	EventLoaded EventType = "loaded"

	// EventRemoved means a file disappeared and its snippets were deleted.
	EventRemoved EventType = "removed"
)

// Event describes one processed change in watch mode.
type Event struct {
	Path  string
	Type  EventType
	Count int
	Err   error
}

// Watch follows filesystem changes under dir until the context is
// cancelled. Created and modified files are loaded, removed files have
// their snippets deleted, and new subdirectories are picked up. The
// returned channel closes when the watch stops.
func (l *Loader) Watch(ctx context.Context, dir string) (<-chan Event, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, fmt.Errorf("loader is closed")
	}
	if l.watcher != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("watch already active")
	}
	l.mu.Unlock()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path error: %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the root and every existing subdirectory; fsnotify does not
	// recurse on its own.
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if hidden(p) && p != dir {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
	if walkErr != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, walkErr)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		watcher.Close()
		return nil, fmt.Errorf("loader is closed")
	}
	l.watcher = watcher
	l.mu.Unlock()

	events := make(chan Event, 16)
	go l.watchLoop(ctx, watcher, events)

	logger.Info("loader: watching %s", dir)
	return events, nil
}

func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- Event) {
	defer close(out)
	defer func() {
		l.mu.Lock()
		if l.watcher == watcher {
			l.watcher = nil
		}
		l.mu.Unlock()
		watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case fsEvent, ok := <-watcher.Events:
			if !ok {
				return
			}
			for _, event := range l.apply(ctx, fsEvent) {
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("loader: watch error: %v", err)
		}
	}
}

// apply processes one filesystem event. It returns nothing for events
// the loader ignores: hidden paths, unsupported extensions, directory
// noise, and chmod-only changes.
func (l *Loader) apply(ctx context.Context, fsEvent fsnotify.Event) []Event {
	if hidden(fsEvent.Name) {
		return nil
	}

	switch {
	case fsEvent.Op.Has(fsnotify.Remove) || fsEvent.Op.Has(fsnotify.Rename):
		removed, err := l.removeFile(ctx, fsEvent.Name)
		if removed == 0 && err == nil {
			return nil
		}
		return []Event{{Path: fsEvent.Name, Type: EventRemoved, Count: removed, Err: err}}

	case fsEvent.Op.Has(fsnotify.Create) || fsEvent.Op.Has(fsnotify.Write):
		info, err := os.Stat(fsEvent.Name)
		if err != nil {
			// Deleted between the event and now; the remove event
			// that follows will clean up.
			return nil
		}
		if info.IsDir() {
			if fsEvent.Op.Has(fsnotify.Create) {
				return l.applyDirCreate(ctx, fsEvent.Name)
			}
			return nil
		}
		if !supportedFile(fsEvent.Name) {
			return nil
		}
		loaded, _, err := l.loadFile(ctx, fsEvent.Name)
		return []Event{{Path: fsEvent.Name, Type: EventLoaded, Count: loaded, Err: err}}

	default:
		return nil
	}
}

// applyDirCreate starts watching a new directory and loads any supported
// files it already contains, which covers directories moved in whole.
func (l *Loader) applyDirCreate(ctx context.Context, dir string) []Event {
	var events []Event

	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if hidden(p) && p != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			l.mu.Lock()
			watcher := l.watcher
			l.mu.Unlock()
			if watcher != nil {
				if err := watcher.Add(p); err != nil {
					logger.Warn("loader: cannot watch %s: %v", p, err)
				}
			}
			return nil
		}
		if !supportedFile(p) {
			return nil
		}
		loaded, _, err := l.loadFile(ctx, p)
		events = append(events, Event{Path: p, Type: EventLoaded, Count: loaded, Err: err})
		return nil
	})
	if walkErr != nil {
		logger.Warn("loader: scanning new directory %s: %v", dir, walkErr)
	}
	return events
}
