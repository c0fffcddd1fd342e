package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

func TestStatsCmd_Use(t *testing.T) {
	assert.Equal(t, "stats", statsCmd.Use)
}

func TestStatsCmd_HasQueryFlags(t *testing.T) {
	queries := statsCmd.Flags().Lookup("queries")
	require.NotNil(t, queries, "queries flag should exist")

	limit := statsCmd.Flags().Lookup("limit")
	require.NotNil(t, limit, "limit flag should exist")
	assert.Equal(t, "n", limit.Shorthand)
	assert.Equal(t, "10", limit.DefValue)
}

func TestStatsCmd_PrintsCounts(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Index Statistics")
	assert.Contains(t, output, "Snippets in store: 3")
	assert.Contains(t, output, "Lexical index:     3")
	assert.Contains(t, output, "Vector index:      3")
	assert.NotContains(t, output, "Lexical-only", "no degraded line when nothing is degraded")
	assert.NotContains(t, output, "Recent Queries", "query log only shown with --queries")
}

func TestStatsCmd_PrintsDegradedAndSync(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()
	syncedAt := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	mocks.index.stats = domain.IndexStats{
		StoreCount:   5,
		LexicalCount: 5,
		VectorCount:  4,
		Degraded:     1,
		LastSyncTime: syncedAt,
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Lexical-only:      1")
	assert.Contains(t, output, "Last sync:         2025-06-01T12:30:00Z")
}

func TestStatsCmd_PrintsCategories(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, mocks.store.Upsert(ctx, domain.Snippet{ID: "bala-nemani", Text: "Bala Nemani is the CEO.", Category: "Executive"}))
	require.NoError(t, mocks.store.Upsert(ctx, domain.Snippet{ID: "alice-chen", Text: "Alice Chen leads platform engineering.", Category: "Engineering"}))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Categories:        Engineering, Executive")
}

func TestStatsCmd_ShowsRecentQueries(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()
	mocks.log.records = []domain.QueryRecord{
		{
			Query:       "who is the CEO?",
			Verdict:     domain.ScopeInScope,
			ResultCount: 3,
			Kind:        domain.AnswerGrounded,
			DurationMS:  42,
			AskedAt:     time.Date(2025, 6, 1, 9, 15, 0, 0, time.UTC),
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats", "--queries"})
	defer func() {
		rootCmd.SetArgs(nil)
		statsShowQueries = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Recent Queries")
	assert.Contains(t, output, "2025-06-01 09:15")
	assert.Contains(t, output, "who is the CEO?")
	assert.Contains(t, output, "in_scope")
	assert.Contains(t, output, "3 results")
}

func TestStatsCmd_EmptyQueryLog(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats", "--queries"})
	defer func() {
		rootCmd.SetArgs(nil)
		statsShowQueries = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "(none)")
}

func TestStatsCmd_QueryLogNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	queryLog = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats", "--queries"})
	defer func() {
		rootCmd.SetArgs(nil)
		statsShowQueries = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Query log not configured.")
}

func TestStatsCmd_ServiceError(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()
	mocks.index.err = errors.New("store unavailable")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "stats failed")
}

func TestStatsCmd_ServiceNotConfigured(t *testing.T) {
	oldIndex := indexService
	indexService = nil
	defer func() {
		indexService = oldIndex
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "index service not configured")
}
