package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ansera/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ansera/internal/core/domain"
)

func newTestLoader() (*Loader, *memory.SnippetStore) {
	store := memory.NewSnippetStore()
	return New(store), store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew(t *testing.T) {
	loader, _ := newTestLoader()

	require.NotNil(t, loader)
	assert.Empty(t, loader.pathIDs)
}

func TestLoader_LoadPath(t *testing.T) {
	t.Run("loads a json array", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "people.json"), `[
			{"id": "alice-chen", "text": "Alice Chen leads platform engineering.", "category": "Engineering"},
			{"id": "bala-nemani", "text": "Bala Nemani is the CEO.", "category": "Executive", "source_ref": "https://example.com/bala"}
		]`)
		loader, store := newTestLoader()

		result, err := loader.LoadPath(context.Background(), filepath.Join(dir, "people.json"))

		require.NoError(t, err)
		assert.Equal(t, Result{Files: 1, Snippets: 2}, result)

		alice, err := store.Get(context.Background(), "alice-chen")
		require.NoError(t, err)
		assert.Equal(t, "Engineering", alice.Category)

		bala, err := store.Get(context.Background(), "bala-nemani")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/bala", bala.SourceRef)
	})

	t.Run("loads markdown with a heading category", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "alice.md")
		writeFile(t, path, "# Engineering\n\nAlice Chen leads platform engineering.")
		loader, store := newTestLoader()

		result, err := loader.LoadPath(context.Background(), path)

		require.NoError(t, err)
		assert.Equal(t, Result{Files: 1, Snippets: 1}, result)

		abs, err := filepath.Abs(path)
		require.NoError(t, err)
		snippet, err := store.Get(context.Background(), pathID(abs))
		require.NoError(t, err)
		assert.Equal(t, "Engineering", snippet.Category)
		assert.Equal(t, "Alice Chen leads platform engineering.", snippet.Text)
		assert.Equal(t, abs, snippet.SourceRef)
	})

	t.Run("reloading a file updates instead of duplicating", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bio.txt")
		writeFile(t, path, "Bala Nemani is the CEO.")
		loader, store := newTestLoader()

		_, err := loader.LoadPath(context.Background(), path)
		require.NoError(t, err)

		writeFile(t, path, "Bala Nemani is the CEO and co-founder.")
		_, err = loader.LoadPath(context.Background(), path)
		require.NoError(t, err)

		count, err := store.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		abs, err := filepath.Abs(path)
		require.NoError(t, err)
		snippet, err := store.Get(context.Background(), pathID(abs))
		require.NoError(t, err)
		assert.Equal(t, "Bala Nemani is the CEO and co-founder.", snippet.Text)
	})

	t.Run("re-parsing removes entries the file dropped", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "people.json")
		writeFile(t, path, `[
			{"id": "alice-chen", "text": "Alice Chen leads platform engineering."},
			{"id": "bala-nemani", "text": "Bala Nemani is the CEO."}
		]`)
		loader, store := newTestLoader()

		_, err := loader.LoadPath(context.Background(), path)
		require.NoError(t, err)

		writeFile(t, path, `[{"id": "alice-chen", "text": "Alice Chen leads platform engineering."}]`)
		result, err := loader.LoadPath(context.Background(), path)
		require.NoError(t, err)

		assert.Equal(t, Result{Files: 1, Snippets: 1, Removed: 1}, result)
		_, err = store.Get(context.Background(), "bala-nemani")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("walks directories and skips hidden and unsupported files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
		writeFile(t, filepath.Join(dir, "people.json"), `{"id": "a", "text": "entry a"}`)
		writeFile(t, filepath.Join(dir, "sub", "note.md"), "# Ops\n\nOn-call rotates weekly.")
		writeFile(t, filepath.Join(dir, "config.yaml"), "ignored: true")
		writeFile(t, filepath.Join(dir, ".hidden.md"), "# Secret\n\nnot loaded")
		writeFile(t, filepath.Join(dir, ".git", "stash.json"), `{"id": "ghost", "text": "not loaded"}`)
		loader, store := newTestLoader()

		result, err := loader.LoadPath(context.Background(), dir)

		require.NoError(t, err)
		assert.Equal(t, Result{Files: 2, Snippets: 2}, result)

		count, err := store.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("skips entries that fail validation", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mixed.json")
		writeFile(t, path, `[
			{"id": "ok", "text": "valid entry"},
			{"id": "blank", "text": "   "}
		]`)
		loader, store := newTestLoader()

		result, err := loader.LoadPath(context.Background(), path)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Snippets)

		_, err = store.Get(context.Background(), "blank")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("generated ids are uuids", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "anon.json"), `{"text": "anonymous entry"}`)
		loader, store := newTestLoader()

		_, err := loader.LoadPath(context.Background(), filepath.Join(dir, "anon.json"))
		require.NoError(t, err)

		snippets, err := store.List(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, snippets, 1)
		_, parseErr := uuid.Parse(snippets[0].ID)
		assert.NoError(t, parseErr)
	})

	t.Run("errors on a missing path", func(t *testing.T) {
		loader, _ := newTestLoader()

		_, err := loader.LoadPath(context.Background(), "/non/existent/path")

		assert.Error(t, err)
	})

	t.Run("errors on an unsupported single file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "config.yaml"), "ignored: true")
		loader, _ := newTestLoader()

		_, err := loader.LoadPath(context.Background(), filepath.Join(dir, "config.yaml"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported file type")
	})

	t.Run("directory pass skips malformed files and keeps going", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "broken.json"), `{not json`)
		writeFile(t, filepath.Join(dir, "good.json"), `{"id": "good", "text": "valid entry"}`)
		loader, store := newTestLoader()

		result, err := loader.LoadPath(context.Background(), dir)

		require.NoError(t, err)
		assert.Equal(t, Result{Files: 1, Snippets: 1}, result)

		_, err = store.Get(context.Background(), "good")
		assert.NoError(t, err)
	})
}

func TestLoader_Watch(t *testing.T) {
	t.Run("loads created files", func(t *testing.T) {
		dir := t.TempDir()
		loader, store := newTestLoader()
		defer loader.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := loader.Watch(ctx, dir)
		require.NoError(t, err)

		path := filepath.Join(dir, "new-profile.md")
		go func() {
			time.Sleep(50 * time.Millisecond)
			os.WriteFile(path, []byte("# Engineering\n\nAlice Chen leads platform engineering."), 0o644)
		}()

		select {
		case event := <-events:
			assert.Equal(t, EventLoaded, event.Type)
			assert.Contains(t, event.Path, "new-profile.md")
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for load event")
		}

		abs, err := filepath.Abs(path)
		require.NoError(t, err)
		waitForSnippet(t, store, pathID(abs))
	})

	t.Run("removes snippets for deleted files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bio.txt")
		writeFile(t, path, "Bala Nemani is the CEO.")
		loader, store := newTestLoader()
		defer loader.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		_, err := loader.LoadPath(ctx, path)
		require.NoError(t, err)

		events, err := loader.Watch(ctx, dir)
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			os.Remove(path)
		}()

		select {
		case event := <-events:
			assert.Equal(t, EventRemoved, event.Type)
			assert.Equal(t, 1, event.Count)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for remove event")
		}

		abs, err := filepath.Abs(path)
		require.NoError(t, err)
		_, err = store.Get(context.Background(), pathID(abs))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("closes the channel when the context is cancelled", func(t *testing.T) {
		dir := t.TempDir()
		loader, _ := newTestLoader()
		defer loader.Close()
		ctx, cancel := context.WithCancel(context.Background())

		events, err := loader.Watch(ctx, dir)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-events:
			if ok {
				for range events {
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatal("channel did not close after cancellation")
		}
	})

	t.Run("errors on a missing directory", func(t *testing.T) {
		loader, _ := newTestLoader()

		events, err := loader.Watch(context.Background(), "/non/existent/path")

		require.Error(t, err)
		assert.Nil(t, events)
		assert.Contains(t, err.Error(), "watch path error")
	})

	t.Run("errors on a plain file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bio.txt")
		writeFile(t, path, "not a directory")
		loader, _ := newTestLoader()

		_, err := loader.Watch(context.Background(), path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("errors after close", func(t *testing.T) {
		dir := t.TempDir()
		loader, _ := newTestLoader()
		require.NoError(t, loader.Close())

		events, err := loader.Watch(context.Background(), dir)

		require.Error(t, err)
		assert.Nil(t, events)
		assert.Contains(t, err.Error(), "closed")
	})

	t.Run("rejects a second concurrent watch", func(t *testing.T) {
		dir := t.TempDir()
		loader, _ := newTestLoader()
		defer loader.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		_, err := loader.Watch(ctx, dir)
		require.NoError(t, err)

		_, err = loader.Watch(ctx, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already active")
	})
}

func TestLoader_Close(t *testing.T) {
	t.Run("close is idempotent", func(t *testing.T) {
		loader, _ := newTestLoader()

		assert.NoError(t, loader.Close())
		assert.NoError(t, loader.Close())
	})

	t.Run("close stops an active watch", func(t *testing.T) {
		dir := t.TempDir()
		loader, _ := newTestLoader()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := loader.Watch(ctx, dir)
		require.NoError(t, err)

		require.NoError(t, loader.Close())

		select {
		case _, ok := <-events:
			if ok {
				for range events {
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatal("channel did not close after Close")
		}
	})
}

// waitForSnippet polls the store until the snippet appears. Watch tests
// need it because file creation arrives as a create event followed by a
// write event and only the latter is guaranteed to see the content.
func waitForSnippet(t *testing.T, store *memory.SnippetStore, id string) domain.Snippet {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snippet, err := store.Get(context.Background(), id)
		if err == nil {
			return snippet
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("snippet %s never appeared in the store", id)
	return domain.Snippet{}
}
