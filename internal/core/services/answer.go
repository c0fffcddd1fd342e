package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
	"github.com/custodia-labs/ansera/internal/core/ports/driving"
	"github.com/custodia-labs/ansera/internal/logger"
)

// Ensure AnswerService implements the interfaces.
var (
	_ driving.AnswerService   = (*AnswerService)(nil)
	_ driven.PromptStoreAware = (*AnswerService)(nil)
)

// indexDownReply is the safe message when both retrieval indexes are
// unavailable. The turn fails; the conversation survives.
const indexDownReply = "Search is temporarily unavailable, please try again in a moment."

// greetingWords open a smalltalk query.
var greetingWords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "howdy": {}, "greetings": {},
	"hiya": {}, "yo": {},
}

// smallTalkWords may follow a greeting without turning it into a real
// question.
var smallTalkWords = map[string]struct{}{
	"there": {}, "all": {}, "everyone": {}, "team": {}, "folks": {},
	"again": {}, "good": {}, "morning": {}, "afternoon": {},
	"evening": {}, "day": {},
}

// AnswerService orchestrates the full answering pipeline: greeting
// short-circuit, scope classification, hybrid retrieval, context
// assembly, generation with extractive fallback, and citation
// validation. Every query yields some answer; only a snippet store
// failure surfaces as an error.
type AnswerService struct {
	scope         *ScopeService
	retrieval     driving.RetrievalService
	assembler     *AssemblerService
	conversations *ConversationService
	store         driven.SnippetStore
	llm           driven.LLMService
	queryLog      driven.QueryLog
	prompts       driven.PromptStore
	settings      domain.AnswerSettings
}

// NewAnswerService wires the answering pipeline. llm and queryLog are
// optional (can be nil): without an llm every grounded answer degrades
// to extractive mode; without a query log nothing is recorded.
func NewAnswerService(
	scope *ScopeService,
	retrieval driving.RetrievalService,
	assembler *AssemblerService,
	conversations *ConversationService,
	store driven.SnippetStore,
	llm driven.LLMService,
	queryLog driven.QueryLog,
	settings domain.AnswerSettings,
) *AnswerService {
	return &AnswerService{
		scope:         scope,
		retrieval:     retrieval,
		assembler:     assembler,
		conversations: conversations,
		store:         store,
		llm:           llm,
		queryLog:      queryLog,
		settings:      settings,
	}
}

// SetPromptStore injects response template overrides.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Ask answers one question within a conversation.
func (s *AnswerService) Ask(ctx context.Context, query string, conversationID string) (domain.Answer, error) {
	logger.Section("Ask")
	started := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Answer{}, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	logger.Debug("Query: %q, conversation: %q", query, conversationID)

	turn := s.conversations.StartTurn(conversationID)
	record := domain.ConversationTurn{Query: query, AskedAt: started}

	answer, err := s.processTurn(ctx, query, turn, &record)
	answer.ConversationID = turn.ConversationID
	answer.TurnIndex = turn.Index

	record.Answer = answer.Text
	record.Citations = answer.Citations
	record.Scope = answer.Scope
	turn.Finish(record)

	s.logQuery(ctx, query, answer, len(record.RetrievedIDs), started)

	logger.Info("Answered (%s) in %s", answer.Kind, time.Since(started).Round(time.Millisecond))
	return answer, err
}

// processTurn runs the state machine for a single turn. It returns the
// answer for every outcome except a store failure, which is the one
// condition callers get an error for.
func (s *AnswerService) processTurn(
	ctx context.Context, query string, turn *TurnContext, record *domain.ConversationTurn,
) (domain.Answer, error) {
	if isGreeting(query) {
		logger.Debug("Greeting detected, skipping retrieval")
		return domain.Answer{
			Text: s.template(driven.PromptGreeting, defaultGreetings, turn.Index),
			Kind: domain.AnswerGreeting,
		}, nil
	}

	turn.Advance(domain.TurnAwaitingScope)
	decision, err := s.scope.Classify(ctx, query, turn.PriorTerms)
	if err != nil {
		turn.Advance(domain.TurnError)
		return domain.Answer{Kind: domain.AnswerError}, fmt.Errorf("classify scope: %w", err)
	}

	if !decision.InScope() {
		logger.Info("Out of scope: %q", query)
		turn.Advance(domain.TurnOutOfScope)
		return domain.Answer{
			Text:  s.outOfScopeReply(ctx, turn.Index),
			Scope: decision,
			Kind:  domain.AnswerOutOfScope,
		}, nil
	}

	turn.Advance(domain.TurnRetrieving)
	topK := s.settings.TopK
	if topK <= 0 {
		topK = domain.DefaultAppSettings().Answer.TopK
	}
	result, err := s.retrieval.Retrieve(ctx, decision.Query, topK)
	if err != nil {
		turn.Advance(domain.TurnError)
		if errors.Is(err, domain.ErrIndexUnavailable) {
			// Degraded but answerable: the caller gets a safe message,
			// not an error.
			logger.Warn("Both indexes unavailable: %v", err)
			return domain.Answer{Text: indexDownReply, Scope: decision, Kind: domain.AnswerError}, nil
		}
		return domain.Answer{Scope: decision, Kind: domain.AnswerError}, fmt.Errorf("retrieve: %w", err)
	}
	record.RetrievedIDs = result.IDs()

	if result.Empty() {
		// Looked in-scope, found nothing: reclassify as ambiguous and
		// fall back deterministically. No generation call.
		decision.Verdict = domain.ScopeAmbiguous
		logger.Info("In-scope query with zero results, reclassified ambiguous: %q", query)
		turn.Advance(domain.TurnNoEvidence)
		return domain.Answer{
			Text:  s.template(driven.PromptNoEvidence, defaultNoEvidence, turn.Index),
			Scope: decision,
			Kind:  domain.AnswerNoEvidence,
		}, nil
	}

	evidence, err := s.retrieval.Hydrate(ctx, result)
	if err != nil {
		turn.Advance(domain.TurnError)
		return domain.Answer{Scope: decision, Kind: domain.AnswerError},
			fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	assembly := s.assembler.Build(query, evidence, turn.History)
	if assembly.Empty() {
		turn.Advance(domain.TurnNoEvidence)
		return domain.Answer{
			Text:  s.template(driven.PromptNoEvidence, defaultNoEvidence, turn.Index),
			Scope: decision,
			Kind:  domain.AnswerNoEvidence,
		}, nil
	}

	if s.llm == nil {
		logger.Debug("No generation service configured, answering extractively")
		turn.Advance(domain.TurnIdle)
		return s.extractiveAnswer(decision, assembly, turn.Index), nil
	}

	turn.Advance(domain.TurnGenerating)
	text, err := s.generate(ctx, assembly.Prompt)
	if err != nil {
		logger.Warn("Generation failed, falling back to extractive answer: %v", err)
		turn.Advance(domain.TurnIdle)
		return s.extractiveAnswer(decision, assembly, turn.Index), nil
	}

	cleaned, cited := s.assembler.ValidateCitations(text, assembly.Citations)
	turn.Advance(domain.TurnIdle)
	return domain.Answer{
		Text:      cleaned,
		Citations: cited,
		Scope:     decision,
		Kind:      domain.AnswerGrounded,
	}, nil
}

// generate runs the LLM under the configured deadline.
func (s *AnswerService) generate(ctx context.Context, prompt string) (string, error) {
	timeoutMS := s.settings.GenerationTimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = domain.DefaultAppSettings().Answer.GenerationTimeoutMS
	}
	genCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
	defer cancel()

	text, err := s.llm.Generate(genCtx, prompt, driven.GenerateOptions{
		MaxTokens:   512,
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty generation result")
	}
	return text, nil
}

// extractiveAnswer returns the assembled excerpts verbatim, clearly
// marked so raw snippets are never passed off as synthesis.
func (s *AnswerService) extractiveAnswer(decision domain.ScopeDecision, assembly Assembly, turnIndex int) domain.Answer {
	var b strings.Builder
	b.WriteString(s.template(driven.PromptExtractiveNote, defaultExtractiveNote, turnIndex))
	for i, excerpt := range assembly.Excerpts {
		b.WriteString(fmt.Sprintf("\n[%d] %s", assembly.Citations[i].Marker, excerpt))
	}
	return domain.Answer{
		Text:      b.String(),
		Citations: assembly.Citations,
		Scope:     decision,
		Kind:      domain.AnswerExtractive,
	}
}

// outOfScopeReply renders the redirect, suggesting real categories from
// the store so the user learns what is askable.
func (s *AnswerService) outOfScopeReply(ctx context.Context, turnIndex int) string {
	tmpl := s.template(driven.PromptOutOfScope, defaultOutOfScope, turnIndex)

	suggestion := "the people, roles and teams in this knowledge base"
	if categories, err := s.store.Categories(ctx); err == nil && len(categories) > 0 {
		if len(categories) > 3 {
			categories = categories[:3]
		}
		suggestion = "topics like " + strings.Join(categories, ", ")
	}

	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, suggestion)
	}
	return tmpl
}

// template resolves a response template by name, preferring the prompt
// store, and picks the variant for this turn.
func (s *AnswerService) template(name string, defaults []string, turnIndex int) string {
	variants := defaults
	if s.prompts != nil {
		if raw, err := s.prompts.Load(name); err == nil {
			if loaded := splitVariants(raw); len(loaded) > 0 {
				variants = loaded
			}
		} else {
			logger.Debug("Template %s not loadable, using defaults: %v", name, err)
		}
	}
	return pickVariant(variants, turnIndex)
}

// logQuery records per-query analytics, best effort.
func (s *AnswerService) logQuery(ctx context.Context, query string, answer domain.Answer, resultCount int, started time.Time) {
	if s.queryLog == nil {
		return
	}
	err := s.queryLog.Record(ctx, domain.QueryRecord{
		Query:       query,
		Verdict:     answer.Scope.Verdict,
		ResultCount: resultCount,
		Kind:        answer.Kind,
		DurationMS:  time.Since(started).Milliseconds(),
		AskedAt:     started,
	})
	if err != nil {
		logger.Warn("Query log write failed: %v", err)
	}
}

// isGreeting reports whether a query is pure smalltalk: a greeting
// opener followed only by more smalltalk. "hi, who is the CEO?" is a
// question, not a greeting.
func isGreeting(query string) bool {
	words := domain.Words(query)
	if len(words) == 0 || len(words) > 4 {
		return false
	}
	if _, ok := greetingWords[words[0]]; !ok {
		if words[0] != "good" || len(words) < 2 {
			return false
		}
	}
	for _, w := range words[1:] {
		if _, ok := greetingWords[w]; ok {
			continue
		}
		if _, ok := smallTalkWords[w]; ok {
			continue
		}
		if domain.IsStopWord(w) {
			continue
		}
		return false
	}
	return true
}
