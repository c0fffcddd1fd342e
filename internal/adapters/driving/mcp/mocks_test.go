package mcp

import (
	"context"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer domain.Answer
	err    error

	lastQuery          string
	lastConversationID string
}

func (m *mockAnswerService) Ask(_ context.Context, query, conversationID string) (domain.Answer, error) {
	m.lastQuery = query
	m.lastConversationID = conversationID
	return m.answer, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result     domain.RetrievalResult
	retrieved  []domain.RetrievedSnippet
	err        error
	hydrateErr error

	lastQuery string
	lastK     int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, k int) (domain.RetrievalResult, error) {
	m.lastQuery = query
	m.lastK = k
	return m.result, m.err
}

func (m *mockRetrievalService) Hydrate(_ context.Context, _ domain.RetrievalResult) ([]domain.RetrievedSnippet, error) {
	return m.retrieved, m.hydrateErr
}

// mockIndexAdmin is a mock implementation of driving.IndexAdmin.
type mockIndexAdmin struct {
	stats domain.IndexStats
	err   error

	reindexed bool
}

func (m *mockIndexAdmin) ReindexAll(_ context.Context) (domain.IndexStats, error) {
	m.reindexed = true
	return m.stats, m.err
}

func (m *mockIndexAdmin) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

// mockSnippetStore is a mock implementation of driven.SnippetStore.
type mockSnippetStore struct {
	snippets   []domain.Snippet
	snippet    domain.Snippet
	categories []string
	err        error
	getErr     error
}

func (m *mockSnippetStore) Get(_ context.Context, _ string) (domain.Snippet, error) {
	return m.snippet, m.getErr
}

func (m *mockSnippetStore) List(_ context.Context, _ string) ([]domain.Snippet, error) {
	return m.snippets, m.err
}

func (m *mockSnippetStore) Count(_ context.Context) (int, error) {
	return len(m.snippets), m.err
}

func (m *mockSnippetStore) Categories(_ context.Context) ([]string, error) {
	return m.categories, m.err
}

func (m *mockSnippetStore) Upsert(_ context.Context, _ domain.Snippet) error {
	return m.err
}

func (m *mockSnippetStore) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockSnippetStore) SaveEmbedding(_ context.Context, _ string, _ string, _ []float32) error {
	return m.err
}

func (m *mockSnippetStore) Subscribe(_ int) (<-chan domain.SnippetEvent, func()) {
	ch := make(chan domain.SnippetEvent)
	return ch, func() { close(ch) }
}

func (m *mockSnippetStore) Close() error {
	return nil
}
