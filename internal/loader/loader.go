// Package loader ingests snippet files into the snippet store and can
// watch a drop directory for changes. Files become snippets, edits become
// updates, and removals become deletions, so a directory of JSON or
// Markdown profiles behaves like a managed knowledge source.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ansera/internal/core/ports/driven"
	"github.com/custodia-labs/ansera/internal/logger"
)

// Result summarises a load pass.
type Result struct {
	// Files is the number of files parsed.
	Files int

	// Snippets is the number of snippets upserted.
	Snippets int

	// Removed is the number of stale snippets deleted because a
	// re-parsed file no longer contains them.
	Removed int
}

// Loader reads snippet files and applies them to a snippet store.
// Each file's snippet ids are tracked so that re-parsing a file removes
// entries it no longer contains, and deleting a file removes everything
// it contributed.
type Loader struct {
	store driven.SnippetStore

	mu      sync.Mutex
	pathIDs map[string][]string
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a loader that writes through the given store.
func New(store driven.SnippetStore) *Loader {
	return &Loader{
		store:   store,
		pathIDs: make(map[string][]string),
	}
}

// LoadPath ingests a single file or every supported file under a
// directory. Hidden files and directories are skipped. Files that fail
// to parse are logged and skipped; store failures abort the pass.
func (l *Loader) LoadPath(ctx context.Context, path string) (Result, error) {
	var result Result

	info, err := os.Stat(path)
	if err != nil {
		return result, fmt.Errorf("load path: %w", err)
	}

	if !info.IsDir() {
		if !supportedFile(path) {
			return result, fmt.Errorf("load path: unsupported file type %q", filepath.Ext(path))
		}
		loaded, removed, err := l.loadFile(ctx, path)
		if err != nil {
			return result, err
		}
		return Result{Files: 1, Snippets: loaded, Removed: removed}, nil
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if hidden(p) && p != path {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !supportedFile(p) {
			return nil
		}

		loaded, removed, err := l.loadFile(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Warn("loader: skipping %s: %v", p, err)
			return nil
		}
		result.Files++
		result.Snippets += loaded
		result.Removed += removed
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("load path: %w", err)
	}
	return result, nil
}

// loadFile parses one file and reconciles its snippets with the store:
// parsed snippets are upserted, and ids the file contributed on a prior
// pass but no longer contains are deleted.
func (l *Loader) loadFile(ctx context.Context, path string) (loaded, removed int, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", path, err)
	}

	snippets, err := parseFile(abs, data)
	if err != nil {
		return 0, 0, err
	}

	ids := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		if err := snippet.Validate(); err != nil {
			logger.Warn("loader: skipping entry in %s: %v", path, err)
			continue
		}
		if err := l.store.Upsert(ctx, snippet); err != nil {
			return loaded, removed, fmt.Errorf("upsert %s from %s: %w", snippet.ID, path, err)
		}
		ids = append(ids, snippet.ID)
		loaded++
	}

	l.mu.Lock()
	previous := l.pathIDs[abs]
	l.pathIDs[abs] = ids
	l.mu.Unlock()

	for _, id := range previous {
		if containsID(ids, id) {
			continue
		}
		if err := l.store.Delete(ctx, id); err != nil {
			return loaded, removed, fmt.Errorf("delete stale %s from %s: %w", id, path, err)
		}
		removed++
	}

	logger.Debug("loader: %s -> %d snippets (%d stale removed)", path, loaded, removed)
	return loaded, removed, nil
}

// removeFile deletes every snippet a path contributed. It returns the
// number of snippets deleted; paths the loader never saw delete nothing.
func (l *Loader) removeFile(ctx context.Context, path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	l.mu.Lock()
	ids := l.pathIDs[abs]
	delete(l.pathIDs, abs)
	l.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if err := l.store.Delete(ctx, id); err != nil {
			return removed, fmt.Errorf("delete %s for removed %s: %w", id, path, err)
		}
		removed++
	}
	if removed > 0 {
		logger.Debug("loader: %s removed -> %d snippets deleted", path, removed)
	}
	return removed, nil
}

// Close stops any active watch. It is safe to call multiple times.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
