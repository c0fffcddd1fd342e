package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

func TestQueryLog_RecordAndRecent(t *testing.T) {
	log := NewQueryLog()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, log.Record(ctx, domain.QueryRecord{
			Query:   fmt.Sprintf("q%d", i),
			Verdict: domain.ScopeInScope,
			Kind:    domain.AnswerGrounded,
			AskedAt: time.Now(),
		}))
	}

	recent, err := log.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Newest first.
	assert.Equal(t, "q2", recent[0].Query)
	assert.Equal(t, "q1", recent[1].Query)

	all, err := log.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestQueryLog_EvictsOldest(t *testing.T) {
	log := &QueryLog{cap: 2}
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, log.Record(ctx, domain.QueryRecord{Query: fmt.Sprintf("q%d", i)}))
	}

	recent, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "q3", recent[0].Query)
	assert.Equal(t, "q2", recent[1].Query)
}
