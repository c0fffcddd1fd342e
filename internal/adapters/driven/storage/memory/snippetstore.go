package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
	"github.com/custodia-labs/ansera/internal/logger"
)

// Ensure SnippetStore implements the interface.
var _ driven.SnippetStore = (*SnippetStore)(nil)

// SnippetStore is an in-memory implementation of driven.SnippetStore.
// It is the default backend and the one tests build on.
type SnippetStore struct {
	mu       sync.RWMutex
	snippets map[string]domain.Snippet
	version  int64
	subs     map[int]chan domain.SnippetEvent
	nextSub  int
	closed   bool
}

// NewSnippetStore creates a new in-memory snippet store.
func NewSnippetStore() *SnippetStore {
	return &SnippetStore{
		snippets: make(map[string]domain.Snippet),
		subs:     make(map[int]chan domain.SnippetEvent),
	}
}

// Get retrieves a snippet by id.
func (s *SnippetStore) Get(_ context.Context, id string) (domain.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snippet, ok := s.snippets[id]
	if !ok {
		return domain.Snippet{}, domain.ErrNotFound
	}
	return snippet, nil
}

// List returns snippets ordered by id, optionally filtered by category.
func (s *SnippetStore) List(_ context.Context, category string) ([]domain.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Snippet, 0, len(s.snippets))
	for _, snippet := range s.snippets {
		if category != "" && snippet.Category != category {
			continue
		}
		out = append(out, snippet)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of stored snippets.
func (s *SnippetStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snippets), nil
}

// Categories returns the distinct category tags, sorted.
func (s *SnippetStore) Categories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, snippet := range s.snippets {
		if snippet.Category == "" {
			continue
		}
		seen[snippet.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// Upsert inserts or replaces a snippet and publishes an event.
func (s *SnippetStore) Upsert(_ context.Context, snippet domain.Snippet) error {
	if err := snippet.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventType := domain.SnippetCreated
	if _, exists := s.snippets[snippet.ID]; exists {
		eventType = domain.SnippetUpdated
	}
	s.version++
	snippet.UpdatedAt = s.version
	// The embedding cache is owned by SaveEmbedding; a content write
	// never carries one, so a text change invalidates any cached vector.
	snippet.Embedding = nil
	snippet.EmbeddingModel = ""
	s.snippets[snippet.ID] = snippet

	s.publishLocked(domain.SnippetEvent{
		Type:      eventType,
		Snippet:   snippet,
		SnippetID: snippet.ID,
	})
	return nil
}

// Delete removes a snippet. Absent ids are a no-op with no event.
func (s *SnippetStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snippets[id]; !exists {
		return nil
	}
	delete(s.snippets, id)
	s.version++

	s.publishLocked(domain.SnippetEvent{
		Type:      domain.SnippetDeleted,
		SnippetID: id,
	})
	return nil
}

// SaveEmbedding caches the computed vector for a snippet.
// No event is published and the version counter is untouched.
func (s *SnippetStore) SaveEmbedding(_ context.Context, id string, model string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snippet, ok := s.snippets[id]
	if !ok {
		return domain.ErrNotFound
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	snippet.Embedding = vec
	snippet.EmbeddingModel = model
	s.snippets[id] = snippet
	return nil
}

// Subscribe registers for mutation events.
func (s *SnippetStore) Subscribe(buffer int) (<-chan domain.SnippetEvent, func()) {
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

// Close releases resources and closes all subscriber channels.
func (s *SnippetStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	return nil
}

// publishLocked fans an event out to subscribers without blocking.
// Full buffers drop the event; a reindex recovers any missed mutation.
func (s *SnippetStore) publishLocked(event domain.SnippetEvent) {
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
			logger.Warn("snippet store: subscriber buffer full, dropping %s event for %s", event.Type, event.SnippetID)
		}
	}
}
