package domain

import "time"

// TurnState is a state of the per-turn answering state machine.
type TurnState string

// Turn states. The success path is idle -> awaiting_scope_decision ->
// retrieving -> generating -> idle; out_of_scope, no_evidence and error
// are terminal for the turn only.
const (
	// TurnIdle is the resting state between turns.
	TurnIdle TurnState = "idle"

	// TurnAwaitingScope means the query is being classified.
	TurnAwaitingScope TurnState = "awaiting_scope_decision"

	// TurnRetrieving means hybrid retrieval is running.
	TurnRetrieving TurnState = "retrieving"

	// TurnGenerating means the generation capability is producing text.
	TurnGenerating TurnState = "generating"

	// TurnOutOfScope means the query was redirected without retrieval.
	TurnOutOfScope TurnState = "out_of_scope"

	// TurnNoEvidence means retrieval found nothing and the deterministic
	// fallback was returned without generation.
	TurnNoEvidence TurnState = "no_evidence"

	// TurnError means the turn failed; the conversation itself survives
	// and the next query starts fresh.
	TurnError TurnState = "error"
)

// Citation ties a marker in generated text back to its evidence.
type Citation struct {
	// Marker is the 1-based position of the snippet in the assembled
	// context, rendered as [n] in prompt and answer.
	Marker int

	// SnippetID identifies the cited snippet.
	SnippetID string

	// SourceRef is the snippet's opaque source pointer.
	SourceRef string
}

// ConversationTurn records one completed question/answer exchange.
// Turns are append-only and owned by the conversation manager.
type ConversationTurn struct {
	// Index is the 0-based turn number within the session.
	Index int

	// Query is the user's question as asked.
	Query string

	// Scope is the decision made for this turn.
	Scope ScopeDecision

	// RetrievedIDs are the snippet ids retrieval returned, in rank order.
	RetrievedIDs []string

	// Answer is the response text returned to the caller.
	Answer string

	// Citations are the validated citations attached to the answer.
	Citations []Citation

	// State is the terminal state the turn ended in.
	State TurnState

	// AskedAt is when the turn started.
	AskedAt time.Time
}

// Conversation is the multi-turn session state.
// Owned exclusively by the conversation manager; turns beyond MaxTurns
// are evicted oldest-first.
type Conversation struct {
	// ID is the session identifier.
	ID string

	// Turns are the retained exchanges, oldest first.
	Turns []ConversationTurn

	// StartedAt is when the session was created.
	StartedAt time.Time
}

// LastTurn returns the most recent turn and true, or false when empty.
func (c *Conversation) LastTurn() (ConversationTurn, bool) {
	if len(c.Turns) == 0 {
		return ConversationTurn{}, false
	}
	return c.Turns[len(c.Turns)-1], true
}

// Append adds a turn and evicts the oldest while over maxTurns.
// maxTurns <= 0 means unbounded. Eviction shifts in place so the
// backing array stays bounded.
func (c *Conversation) Append(turn ConversationTurn, maxTurns int) {
	c.Turns = append(c.Turns, turn)
	if maxTurns > 0 && len(c.Turns) > maxTurns {
		excess := len(c.Turns) - maxTurns
		c.Turns = append(c.Turns[:0], c.Turns[excess:]...)
	}
}
