package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ansera/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
	"github.com/custodia-labs/ansera/internal/logger"
)

// metaVersionKey is the store_meta row holding the logical version counter.
const metaVersionKey = "version"

// Store is a unified SQLite-based storage that provides the snippet
// store and the query log through wrapper types sharing one database.
// Mutation events are fanned out in-process, so all writers for a
// database must go through the same Store instance.
type Store struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	subs    map[int]chan domain.SnippetEvent
	nextSub int
	closed  bool
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.ansera/data/ansera.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ansera", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ansera.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		subs: make(map[int]chan domain.SnippetEvent),
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes subscriber channels and the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for id, ch := range s.subs {
			delete(s.subs, id)
			close(ch)
		}
	}
	s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SnippetStore returns a SnippetStore interface backed by this store.
func (s *Store) SnippetStore() driven.SnippetStore {
	return &snippetStore{store: s}
}

// QueryLog returns a QueryLog interface backed by this store.
func (s *Store) QueryLog() driven.QueryLog {
	return &queryLog{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// subscribe registers a mutation event channel. See SnippetStore.Subscribe.
func (s *Store) subscribe(buffer int) (<-chan domain.SnippetEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan domain.SnippetEvent, buffer)
	id := s.nextSub
	s.nextSub++
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish fans an event out to subscribers without blocking.
// Full buffers drop the event; a reindex recovers any missed mutation.
func (s *Store) publish(event domain.SnippetEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
			logger.Warn("sqlite store: subscriber buffer full, dropping %s event for %s", event.Type, event.SnippetID)
		}
	}
}

// bumpVersion increments the store-wide version counter inside tx and
// returns the new value.
func bumpVersion(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		"UPDATE store_meta SET value = value + 1 WHERE key = ?", metaVersionKey); err != nil {
		return 0, fmt.Errorf("bumping version counter: %w", err)
	}
	var version int64
	if err := tx.QueryRowContext(ctx,
		"SELECT value FROM store_meta WHERE key = ?", metaVersionKey).Scan(&version); err != nil {
		return 0, fmt.Errorf("reading version counter: %w", err)
	}
	return version, nil
}

// ==================== Snippet Store ====================

// snippetStore implements driven.SnippetStore.
type snippetStore struct {
	store *Store
}

var _ driven.SnippetStore = (*snippetStore)(nil)

// Get retrieves a snippet by id.
func (s *snippetStore) Get(ctx context.Context, id string) (domain.Snippet, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, text, category, source_ref, updated_at, embedding, embedding_model
		FROM snippets WHERE id = ?
	`, id)

	snippet, err := scanSnippetRow(row)
	if err != nil {
		return domain.Snippet{}, err
	}
	return snippet, nil
}

// List returns snippets ordered by id, optionally filtered by category.
func (s *snippetStore) List(ctx context.Context, category string) ([]domain.Snippet, error) {
	query := `
		SELECT id, text, category, source_ref, updated_at, embedding, embedding_model
		FROM snippets
	`
	args := []any{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying snippets: %w", err)
	}
	defer rows.Close()

	var snippets []domain.Snippet //nolint:prealloc // size unknown from query
	for rows.Next() {
		snippet, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, snippet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snippets: %w", err)
	}

	return snippets, nil
}

// Count returns the number of stored snippets.
func (s *snippetStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snippets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting snippets: %w", err)
	}
	return count, nil
}

// Categories returns the distinct category tags, sorted.
func (s *snippetStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM snippets WHERE category != '' ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}

	return categories, nil
}

// Upsert inserts or replaces a snippet and publishes an event.
// The embedding columns are cleared: the cache is owned by
// SaveEmbedding, so a content write invalidates any cached vector.
func (s *snippetStore) Upsert(ctx context.Context, snippet domain.Snippet) error {
	if err := snippet.Validate(); err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists bool
	err = tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM snippets WHERE id = ?)", snippet.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking snippet existence: %w", err)
	}

	version, err := bumpVersion(ctx, tx)
	if err != nil {
		return err
	}
	snippet.UpdatedAt = version
	snippet.Embedding = nil
	snippet.EmbeddingModel = ""

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snippets (id, text, category, source_ref, updated_at, embedding, embedding_model)
		VALUES (?, ?, ?, ?, ?, NULL, '')
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			category = excluded.category,
			source_ref = excluded.source_ref,
			updated_at = excluded.updated_at,
			embedding = NULL,
			embedding_model = ''
	`, snippet.ID, snippet.Text, snippet.Category, snippet.SourceRef, snippet.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving snippet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	eventType := domain.SnippetCreated
	if exists {
		eventType = domain.SnippetUpdated
	}
	s.store.publish(domain.SnippetEvent{
		Type:      eventType,
		Snippet:   snippet,
		SnippetID: snippet.ID,
	})
	return nil
}

// Delete removes a snippet. Absent ids are a no-op with no event.
func (s *snippetStore) Delete(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, "DELETE FROM snippets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting snippet: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return nil
	}

	if _, err := bumpVersion(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.store.publish(domain.SnippetEvent{
		Type:      domain.SnippetDeleted,
		SnippetID: id,
	})
	return nil
}

// SaveEmbedding caches the computed vector for a snippet.
// No event is published and the version counter is untouched.
func (s *snippetStore) SaveEmbedding(ctx context.Context, id string, model string, embedding []float32) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE snippets SET embedding = ?, embedding_model = ? WHERE id = ?
	`, float32SliceToBytes(embedding), model, id)
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking embedding result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Subscribe registers for mutation events.
func (s *snippetStore) Subscribe(buffer int) (<-chan domain.SnippetEvent, func()) {
	return s.store.subscribe(buffer)
}

// Close closes the parent store, including the shared database handle.
func (s *snippetStore) Close() error {
	return s.store.Close()
}

// ==================== Query Log ====================

// queryLog implements driven.QueryLog.
type queryLog struct {
	store *Store
}

var _ driven.QueryLog = (*queryLog)(nil)

// Record appends one analytics row.
func (l *queryLog) Record(ctx context.Context, record domain.QueryRecord) error {
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO query_log (query, verdict, result_count, kind, duration_ms, asked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.Query, string(record.Verdict), record.ResultCount, string(record.Kind),
		record.DurationMS, record.AskedAt)
	if err != nil {
		return fmt.Errorf("recording query: %w", err)
	}
	return nil
}

// Recent returns the most recent records, newest first.
// A non-positive limit returns everything.
func (l *queryLog) Recent(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	query := `
		SELECT query, verdict, result_count, kind, duration_ms, asked_at
		FROM query_log ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying query log: %w", err)
	}
	defer rows.Close()

	var records []domain.QueryRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.QueryRecord
		var verdict, kind string
		var askedAt sql.NullTime
		if err := rows.Scan(&rec.Query, &verdict, &rec.ResultCount, &kind,
			&rec.DurationMS, &askedAt); err != nil {
			return nil, fmt.Errorf("scanning query record: %w", err)
		}
		rec.Verdict = domain.ScopeVerdict(verdict)
		rec.Kind = domain.AnswerKind(kind)
		if askedAt.Valid {
			rec.AskedAt = askedAt.Time
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query log: %w", err)
	}

	return records, nil
}

// Close is a no-op; the database handle is owned by the parent Store.
func (l *queryLog) Close() error {
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanSnippet scans a snippet from *sql.Rows.
func scanSnippet(rows *sql.Rows) (domain.Snippet, error) {
	var snippet domain.Snippet
	var embeddingBlob []byte

	if err := rows.Scan(&snippet.ID, &snippet.Text, &snippet.Category, &snippet.SourceRef,
		&snippet.UpdatedAt, &embeddingBlob, &snippet.EmbeddingModel); err != nil {
		return domain.Snippet{}, fmt.Errorf("scanning snippet: %w", err)
	}

	snippet.Embedding = bytesToFloat32Slice(embeddingBlob)
	return snippet, nil
}

// scanSnippetRow scans a snippet from *sql.Row.
func scanSnippetRow(row *sql.Row) (domain.Snippet, error) {
	var snippet domain.Snippet
	var embeddingBlob []byte

	if err := row.Scan(&snippet.ID, &snippet.Text, &snippet.Category, &snippet.SourceRef,
		&snippet.UpdatedAt, &embeddingBlob, &snippet.EmbeddingModel); err != nil {
		if err == sql.ErrNoRows {
			return domain.Snippet{}, domain.ErrNotFound
		}
		return domain.Snippet{}, fmt.Errorf("scanning snippet: %w", err)
	}

	snippet.Embedding = bytesToFloat32Slice(embeddingBlob)
	return snippet, nil
}
