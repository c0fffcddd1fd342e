package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ansera/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ansera/internal/core/domain"
)

func scopeFixtureStore(t *testing.T) *memory.SnippetStore {
	t.Helper()
	store := memory.NewSnippetStore()
	snippets := []domain.Snippet{
		{ID: "ceo", Text: "Bala Nemani is the Chief Executive Officer. He founded the company in 2012.", Category: "Executive"},
		{ID: "eng-1", Text: "Priya Sharma leads the Platform Engineering team.", Category: "Engineering"},
		{ID: "sales-1", Text: "Marcus Webb is an Account Director covering EMEA.", Category: "Sales"},
	}
	for _, sn := range snippets {
		require.NoError(t, store.Upsert(context.Background(), sn))
	}
	return store
}

func TestScopeClassifyKeywordMatch(t *testing.T) {
	svc := NewScopeService(scopeFixtureStore(t), nil)

	decision, err := svc.Classify(context.Background(), "Who is the CEO of the company?", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ScopeInScope, decision.Verdict)
	assert.Contains(t, decision.MatchedTerms, "ceo")
	assert.Contains(t, decision.MatchedTerms, "company")
	assert.NotContains(t, decision.MatchedTerms, "who", "interrogatives alone carry no scope signal")
	assert.Greater(t, decision.Confidence, 0.0)
}

func TestScopeClassifyInterrogativeAloneIsNotEnough(t *testing.T) {
	svc := NewScopeService(scopeFixtureStore(t), nil)

	decision, err := svc.Classify(context.Background(), "what is today's stock price?", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ScopeOutOfScope, decision.Verdict)
}

func TestScopeClassifyEntityFromStore(t *testing.T) {
	svc := NewScopeService(scopeFixtureStore(t), nil)

	// "Bala" and "Nemani" are not keywords; they only match because the
	// gazetteer picked them up from snippet text.
	decision, err := svc.Classify(context.Background(), "tell me something regarding Nemani", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ScopeInScope, decision.Verdict)
	assert.Contains(t, decision.MatchedTerms, "nemani")
}

func TestScopeClassifyOutOfScope(t *testing.T) {
	svc := NewScopeService(scopeFixtureStore(t), nil)

	decision, err := svc.Classify(context.Background(), "today's stock price please", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ScopeOutOfScope, decision.Verdict)
	assert.Empty(t, decision.MatchedTerms)
	assert.Zero(t, decision.Confidence)
}

func TestScopeClassifyFuzzyEntityMatch(t *testing.T) {
	svc := NewScopeService(scopeFixtureStore(t), nil)

	// One typo in a name still matches via edit distance.
	decision, err := svc.Classify(context.Background(), "details regarding Nemami", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ScopeInScope, decision.Verdict)
}

func TestScopeClassifyFollowUpInheritsTerms(t *testing.T) {
	svc := NewScopeService(scopeFixtureStore(t), nil)

	first, err := svc.Classify(context.Background(), "Who is Priya Sharma?", nil)
	require.NoError(t, err)
	require.Equal(t, domain.ScopeInScope, first.Verdict)

	followUp, err := svc.Classify(context.Background(), "what about her background?", first.MatchedTerms)
	require.NoError(t, err)

	assert.Equal(t, domain.ScopeInScope, followUp.Verdict)
	assert.Contains(t, followUp.MatchedTerms, "sharma")
	assert.Contains(t, followUp.Query, "sharma")
}

func TestScopeClassifyNoPronounIgnoresPriorTerms(t *testing.T) {
	svc := NewScopeService(scopeFixtureStore(t), nil)

	decision, err := svc.Classify(context.Background(), "weather forecast tomorrow", []string{"sharma"})
	require.NoError(t, err)

	assert.Equal(t, domain.ScopeOutOfScope, decision.Verdict)
	assert.NotContains(t, decision.Query, "sharma")
}

func TestScopeClassifyExtraKeywords(t *testing.T) {
	svc := NewScopeService(scopeFixtureStore(t), []string{"oncall"})

	decision, err := svc.Classify(context.Background(), "oncall rotation", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ScopeInScope, decision.Verdict)
}

func TestScopeInvalidateRebuildsGazetteer(t *testing.T) {
	store := scopeFixtureStore(t)
	svc := NewScopeService(store, nil)

	decision, err := svc.Classify(context.Background(), "anything concerning Okafor", nil)
	require.NoError(t, err)
	require.Equal(t, domain.ScopeOutOfScope, decision.Verdict)

	require.NoError(t, store.Upsert(context.Background(), domain.Snippet{
		ID: "eng-2", Text: "Chidi Okafor runs the data platform group.", Category: "Engineering",
	}))
	svc.Invalidate()

	decision, err = svc.Classify(context.Background(), "anything concerning Okafor", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeInScope, decision.Verdict)
}

func TestWithinOneEdit(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"nemani", "nemani", true},
		{"nemani", "nemami", true},  // substitution
		{"nemani", "nemanni", true}, // insertion
		{"nemani", "neman", true},   // deletion
		{"nemani", "nemnai", true},  // transposition
		{"nemani", "nimeni", false},
		{"sharma", "webb", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, withinOneEdit(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}
