package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
	"github.com/custodia-labs/ansera/internal/core/ports/driving"
	"github.com/custodia-labs/ansera/internal/logger"
)

// Ensure IndexerService implements the interface.
var _ driving.IndexAdmin = (*IndexerService)(nil)

const (
	// eventBuffer sizes the store subscription; slow indexing drops
	// events rather than blocking writers, and a reindex repairs drift.
	eventBuffer = 64

	// embedBatchSize bounds one EmbedBatch call during reindex.
	embedBatchSize = 16
)

// IndexerService keeps both retrieval indexes synchronised with the
// snippet store. It consumes the store's mutation events on a single
// goroutine, so index writes for one snippet are never concurrent with
// each other; failures in one index never block the other, they only
// mark the snippet degraded until the next reindex.
type IndexerService struct {
	store    driven.SnippetStore
	lexical  driven.LexicalIndex
	vector   driven.VectorIndex
	embedder driven.EmbeddingService

	mu       sync.RWMutex
	degraded map[string]struct{}
	lastSync time.Time
	hooks    []func()

	runMu  sync.Mutex
	cancel func()
	done   chan struct{}
}

// NewIndexerService creates the indexing pipeline. The embedder is
// optional (can be nil); without it snippets are lexically searchable
// only and counted as degraded.
func NewIndexerService(
	store driven.SnippetStore,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
	embedder driven.EmbeddingService,
) *IndexerService {
	return &IndexerService{
		store:    store,
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
		degraded: make(map[string]struct{}),
	}
}

// OnMutation registers a callback fired after every applied store
// mutation and after every reindex. The scope classifier hangs its
// gazetteer invalidation here. Not safe to call after Start.
func (s *IndexerService) OnMutation(fn func()) {
	s.hooks = append(s.hooks, fn)
}

// Start subscribes to the store and launches the event loop. Calling
// Start twice without Stop is an error.
func (s *IndexerService) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("indexer already running")
	}

	events, unsubscribe := s.store.Subscribe(eventBuffer)
	loopCtx, cancelLoop := context.WithCancel(ctx)
	done := make(chan struct{})

	s.cancel = func() {
		unsubscribe()
		cancelLoop()
	}
	s.done = done

	go s.run(loopCtx, events, done)
	logger.Debug("Indexer started")
	return nil
}

// Stop ends the event loop and waits for it to drain.
func (s *IndexerService) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	logger.Debug("Indexer stopped")
}

// run is the single event-loop goroutine.
func (s *IndexerService) run(ctx context.Context, events <-chan domain.SnippetEvent, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.apply(ctx, event)
			s.markSynced()
		}
	}
}

// apply maps one store mutation onto both indexes. Created and updated
// are handled identically: Index and Add both fully replace prior
// state for the id, which is what guarantees no stale postings or
// vectors survive a text change.
func (s *IndexerService) apply(ctx context.Context, event domain.SnippetEvent) {
	switch event.Type {
	case domain.SnippetCreated, domain.SnippetUpdated:
		s.indexSnippet(ctx, event.Snippet)
	case domain.SnippetDeleted:
		s.removeSnippet(ctx, event.SnippetID)
	default:
		logger.Warn("Indexer: unknown event type %q for %s", event.Type, event.SnippetID)
	}
}

func (s *IndexerService) indexSnippet(ctx context.Context, snippet domain.Snippet) {
	if err := s.lexical.Index(ctx, snippet); err != nil {
		logger.Warn("Indexer: lexical index failed for %s: %v", snippet.ID, err)
	}

	vector, err := s.embeddingFor(ctx, snippet, true)
	if err != nil {
		// The old vector would describe the old text; dropping it is
		// safer than serving a stale neighbour.
		if rmErr := s.vector.Remove(ctx, snippet.ID); rmErr != nil {
			logger.Warn("Indexer: removing stale vector for %s failed: %v", snippet.ID, rmErr)
		}
		s.setDegraded(snippet.ID, true)
		logger.Warn("Indexer: embedding failed for %s, lexical-only: %v", snippet.ID, err)
		return
	}

	if err := s.vector.Add(ctx, snippet.ID, vector); err != nil {
		s.setDegraded(snippet.ID, true)
		logger.Warn("Indexer: vector index failed for %s: %v", snippet.ID, err)
		return
	}
	s.setDegraded(snippet.ID, false)
}

func (s *IndexerService) removeSnippet(ctx context.Context, id string) {
	if err := s.lexical.Remove(ctx, id); err != nil {
		logger.Warn("Indexer: lexical remove failed for %s: %v", id, err)
	}
	if err := s.vector.Remove(ctx, id); err != nil {
		logger.Warn("Indexer: vector remove failed for %s: %v", id, err)
	}
	s.setDegraded(id, false)
}

// embeddingFor resolves a snippet's vector: the cached one when the
// model matches, a fresh Embed call otherwise. Fresh vectors are
// written back to the store cache (best effort) when persist is set.
func (s *IndexerService) embeddingFor(ctx context.Context, snippet domain.Snippet, persist bool) ([]float32, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	model := s.embedder.ModelName()
	if len(snippet.Embedding) > 0 && snippet.EmbeddingModel == model {
		return snippet.Embedding, nil
	}

	vector, err := s.embedder.Embed(ctx, snippet.IndexableText())
	if err != nil {
		return nil, err
	}
	if persist {
		if err := s.store.SaveEmbedding(ctx, snippet.ID, model, vector); err != nil {
			logger.Warn("Indexer: caching embedding for %s failed: %v", snippet.ID, err)
		}
	}
	return vector, nil
}

// ReindexAll rebuilds both indexes from scratch. Embeddings are reused
// from the store cache where the model matches and batch-computed for
// the rest. Per-snippet failures are counted, not fatal; only a store
// read failure aborts.
func (s *IndexerService) ReindexAll(ctx context.Context) (domain.IndexStats, error) {
	logger.Section("Reindex")

	snippets, err := s.store.List(ctx, "")
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("list snippets: %w", err)
	}

	if err := s.lexical.Reset(ctx); err != nil {
		return domain.IndexStats{}, fmt.Errorf("reset lexical index: %w", err)
	}
	if err := s.vector.Reset(ctx); err != nil {
		return domain.IndexStats{}, fmt.Errorf("reset vector index: %w", err)
	}
	s.mu.Lock()
	s.degraded = make(map[string]struct{})
	s.mu.Unlock()

	lexFailures := 0
	for _, snippet := range snippets {
		if err := s.lexical.Index(ctx, snippet); err != nil {
			lexFailures++
			logger.Warn("Reindex: lexical index failed for %s: %v", snippet.ID, err)
		}
	}

	if s.embedder == nil {
		logger.Warn("Reindex: no embedding service, skipping vector index for %d snippets", len(snippets))
		s.mu.Lock()
		for _, snippet := range snippets {
			s.degraded[snippet.ID] = struct{}{}
		}
		s.mu.Unlock()
	} else if err := s.reembedAll(ctx, snippets); err != nil {
		return domain.IndexStats{}, err
	}

	s.markSynced()
	logger.Info("Reindex complete: %d snippets, %d lexical failures", len(snippets), lexFailures)
	return s.Stats(ctx)
}

// reembedAll fills the vector index for all snippets, batching the
// texts that need fresh embeddings.
func (s *IndexerService) reembedAll(ctx context.Context, snippets []domain.Snippet) error {
	model := s.embedder.ModelName()

	// Cached vectors go straight in; the rest queue for batching.
	var pending []domain.Snippet
	for _, snippet := range snippets {
		if len(snippet.Embedding) > 0 && snippet.EmbeddingModel == model {
			if err := s.vector.Add(ctx, snippet.ID, snippet.Embedding); err != nil {
				s.setDegraded(snippet.ID, true)
				logger.Warn("Reindex: vector add failed for %s: %v", snippet.ID, err)
			}
			continue
		}
		pending = append(pending, snippet)
	}

	for start := 0; start < len(pending); start += embedBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + embedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, snippet := range batch {
			texts[i] = snippet.IndexableText()
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			logger.Warn("Reindex: embedding batch of %d failed, snippets stay lexical-only: %v", len(batch), err)
			for _, snippet := range batch {
				s.setDegraded(snippet.ID, true)
			}
			continue
		}
		for i, snippet := range batch {
			if i >= len(vectors) {
				s.setDegraded(snippet.ID, true)
				continue
			}
			if err := s.vector.Add(ctx, snippet.ID, vectors[i]); err != nil {
				s.setDegraded(snippet.ID, true)
				logger.Warn("Reindex: vector add failed for %s: %v", snippet.ID, err)
				continue
			}
			if err := s.store.SaveEmbedding(ctx, snippet.ID, model, vectors[i]); err != nil {
				logger.Warn("Reindex: caching embedding for %s failed: %v", snippet.ID, err)
			}
		}
	}
	return nil
}

// Stats reports current counts across store and indexes.
func (s *IndexerService) Stats(ctx context.Context) (domain.IndexStats, error) {
	storeCount, err := s.store.Count(ctx)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("count snippets: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.IndexStats{
		LexicalCount: s.lexical.Count(),
		VectorCount:  s.vector.Count(),
		StoreCount:   storeCount,
		Degraded:     len(s.degraded),
		LastSyncTime: s.lastSync,
	}, nil
}

func (s *IndexerService) setDegraded(id string, degraded bool) {
	s.mu.Lock()
	if degraded {
		s.degraded[id] = struct{}{}
	} else {
		delete(s.degraded, id)
	}
	s.mu.Unlock()
}

func (s *IndexerService) markSynced() {
	s.mu.Lock()
	s.lastSync = time.Now()
	hooks := s.hooks
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}
