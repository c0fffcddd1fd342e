package domain

import "time"

// AnswerKind distinguishes how an answer was produced.
type AnswerKind string

// Answer kinds.
const (
	// AnswerGrounded is a generated synthesis over retrieved evidence.
	AnswerGrounded AnswerKind = "grounded"

	// AnswerExtractive is raw snippet text returned because generation
	// failed or timed out; clearly marked, never passed off as synthesis.
	AnswerExtractive AnswerKind = "extractive"

	// AnswerNoEvidence is the deterministic "no matching profile"
	// response for in-scope queries with zero retrieval results.
	AnswerNoEvidence AnswerKind = "no_evidence"

	// AnswerOutOfScope is the redirect for queries outside the domain.
	AnswerOutOfScope AnswerKind = "out_of_scope"

	// AnswerGreeting is the canned reply to a greeting.
	AnswerGreeting AnswerKind = "greeting"

	// AnswerError is the safe message for a failed turn.
	AnswerError AnswerKind = "error"
)

// Answer is the response returned to callers of the answering interface.
type Answer struct {
	// Text is the user-facing response.
	Text string

	// Citations tie markers in Text to snippet sources. Only present on
	// grounded and extractive answers.
	Citations []Citation

	// Scope is the decision that shaped this answer.
	Scope ScopeDecision

	// Kind records how the answer was produced.
	Kind AnswerKind

	// ConversationID is the session this answer belongs to.
	ConversationID string

	// TurnIndex is the turn number within the session.
	TurnIndex int
}

// SourceRefs returns the cited source references in marker order.
func (a Answer) SourceRefs() []string {
	refs := make([]string, len(a.Citations))
	for i, c := range a.Citations {
		refs[i] = c.SourceRef
	}
	return refs
}

// QueryRecord is one analytics row written after every answered query.
type QueryRecord struct {
	// Query is the question as asked.
	Query string

	// Verdict is the scope classification outcome.
	Verdict ScopeVerdict

	// ResultCount is how many snippets retrieval returned.
	ResultCount int

	// Kind is how the answer was produced.
	Kind AnswerKind

	// DurationMS is the end-to-end turn latency in milliseconds.
	DurationMS int64

	// AskedAt is when the query arrived.
	AskedAt time.Time
}
