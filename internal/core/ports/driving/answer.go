package driving

import (
	"context"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

// AnswerService exposes the scope-aware answering interface to callers.
type AnswerService interface {
	// Ask answers one question within a conversation. An empty
	// conversationID starts a fresh single-turn session. Every query
	// yields some answer; only a snippet store failure returns an error.
	Ask(ctx context.Context, query string, conversationID string) (domain.Answer, error)
}

// ConversationAdmin exposes session inspection and lifecycle control.
type ConversationAdmin interface {
	// History returns the retained turns for a session, oldest first.
	History(conversationID string) ([]domain.ConversationTurn, bool)

	// Reset discards a session's state. Unknown ids are a no-op.
	Reset(conversationID string)

	// ActiveSessions returns the number of live sessions.
	ActiveSessions() int
}
