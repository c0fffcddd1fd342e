package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driving"
	"github.com/custodia-labs/ansera/internal/logger"
)

// Ensure ConversationService implements the interface.
var _ driving.ConversationAdmin = (*ConversationService)(nil)

// turnTransitions lists the legal turn state moves. idle is both the
// start and the success end; out_of_scope, no_evidence and error end
// the turn early.
var turnTransitions = map[domain.TurnState][]domain.TurnState{
	domain.TurnIdle:          {domain.TurnAwaitingScope},
	domain.TurnAwaitingScope: {domain.TurnRetrieving, domain.TurnOutOfScope, domain.TurnIdle, domain.TurnError},
	domain.TurnRetrieving:    {domain.TurnGenerating, domain.TurnNoEvidence, domain.TurnIdle, domain.TurnError},
	domain.TurnGenerating:    {domain.TurnIdle, domain.TurnError},
}

// session pairs one conversation with the mutex that serialises its
// turns. The mutex is locked in StartTurn and released in Finish.
type session struct {
	mu    sync.Mutex
	conv  domain.Conversation
	total int // turns ever recorded; unlike len(Turns) this survives eviction
}

// ConversationService owns all multi-turn session state. Turns within
// one conversation run strictly one at a time: StartTurn blocks until
// the previous turn's Finish. Different conversations proceed in
// parallel.
type ConversationService struct {
	maxTurns int

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewConversationService creates a session manager retaining at most
// maxTurns turns per conversation (oldest evicted first).
func NewConversationService(maxTurns int) *ConversationService {
	if maxTurns <= 0 {
		maxTurns = domain.DefaultAppSettings().Answer.MaxTurns
	}
	return &ConversationService{
		maxTurns: maxTurns,
		sessions: make(map[string]*session),
	}
}

// TurnContext is the handle for one in-flight turn. It carries a
// stable copy of the history taken at turn start and holds the session
// lock until Finish.
type TurnContext struct {
	svc  *ConversationService
	sess *session

	// ConversationID is the session id, generated when the caller
	// passed an empty one.
	ConversationID string

	// Index is this turn's 0-based number within the session.
	Index int

	// PriorTerms are the matched terms of the most recent in-scope
	// turn, for follow-up resolution.
	PriorTerms []string

	// History is a copy of the retained turns, oldest first.
	History []domain.ConversationTurn

	state    domain.TurnState
	finished bool
}

// StartTurn opens a turn on the given conversation, creating the
// session if needed. An empty id gets a fresh UUID. The returned
// context holds the session lock; the caller must call Finish exactly
// once.
func (s *ConversationService) StartTurn(conversationID string) *TurnContext {
	if conversationID == "" {
		conversationID = uuid.NewString()
		logger.Debug("Starting fresh conversation %s", conversationID)
	}

	s.mu.Lock()
	sess, ok := s.sessions[conversationID]
	if !ok {
		sess = &session{conv: domain.Conversation{ID: conversationID, StartedAt: time.Now()}}
		s.sessions[conversationID] = sess
	}
	s.mu.Unlock()

	// Serialise with any turn already running on this session.
	sess.mu.Lock()

	history := make([]domain.ConversationTurn, len(sess.conv.Turns))
	copy(history, sess.conv.Turns)

	return &TurnContext{
		svc:            s,
		sess:           sess,
		ConversationID: conversationID,
		Index:          sess.total,
		PriorTerms:     priorTerms(history),
		History:        history,
		state:          domain.TurnIdle,
	}
}

// Advance moves the turn state machine. Illegal moves are logged and
// applied anyway; a wedged turn would be worse than a noisy one.
func (t *TurnContext) Advance(to domain.TurnState) {
	legal := false
	for _, next := range turnTransitions[t.state] {
		if next == to {
			legal = true
			break
		}
	}
	if !legal {
		logger.Warn("Conversation %s turn %d: unexpected state transition %s -> %s",
			t.ConversationID, t.Index, t.state, to)
	}
	logger.Debug("Conversation %s turn %d: %s -> %s", t.ConversationID, t.Index, t.state, to)
	t.state = to
}

// State returns the current turn state.
func (t *TurnContext) State() domain.TurnState {
	return t.state
}

// Finish records the completed turn and releases the session for the
// next query. Safe to call more than once; only the first call counts.
// The turn's Index is set here; State falls back to the machine's
// current state when the caller left it empty.
func (t *TurnContext) Finish(turn domain.ConversationTurn) {
	if t.finished {
		return
	}
	t.finished = true

	turn.Index = t.Index
	if turn.State == "" {
		turn.State = t.state
	}
	t.sess.conv.Append(turn, t.svc.maxTurns)
	t.sess.total++
	t.sess.mu.Unlock()
}

// History returns a copy of the retained turns for a session.
func (s *ConversationService) History(conversationID string) ([]domain.ConversationTurn, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	turns := make([]domain.ConversationTurn, len(sess.conv.Turns))
	copy(turns, sess.conv.Turns)
	return turns, true
}

// Reset discards a session. Unknown ids are a no-op. An in-flight turn
// on the session finishes against the discarded state; its Finish is
// harmless because the session is no longer reachable.
func (s *ConversationService) Reset(conversationID string) {
	s.mu.Lock()
	delete(s.sessions, conversationID)
	s.mu.Unlock()
	logger.Debug("Conversation %s reset", conversationID)
}

// ActiveSessions returns the number of live sessions.
func (s *ConversationService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// priorTerms finds the most recent in-scope turn's matched terms.
// Ambiguous turns are skipped: their entity never resolved to
// evidence, so inheriting it would propagate the miss.
func priorTerms(history []domain.ConversationTurn) []string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Scope.Verdict == domain.ScopeInScope && len(history[i].Scope.MatchedTerms) > 0 {
			return history[i].Scope.MatchedTerms
		}
	}
	return nil
}
