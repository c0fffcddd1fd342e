package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/go-porterstemmer"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
	"github.com/custodia-labs/ansera/internal/logger"
)

// domainKeywords seed the in-scope vocabulary: the role, team and
// profile language the knowledge base answers questions about.
// Interrogatives are deliberately absent: "what is the stock price?"
// must not look in-scope just because it asks "what". Stored stemmed;
// query tokens are stemmed before lookup.
var domainKeywords = []string{
	// roles and titles
	"ceo", "cto", "cfo", "coo", "cio", "vp", "president", "founder",
	"cofounder", "chief", "officer", "director", "manager", "lead", "head",
	"executive", "engineer", "developer", "analyst", "designer",
	"architect", "consultant", "specialist", "coordinator", "supervisor",
	// org structure
	"team", "teams", "staff", "department", "dept", "company",
	"organisation", "organization", "division", "group", "board",
	// profile facts
	"role", "title", "position", "job", "work", "works", "responsibility",
	"responsibilities", "report", "reports", "background", "bio",
	"biography", "profile", "experience", "skill", "skills", "contact",
	"email", "phone", "name", "people", "person", "employee", "employees",
	"colleague", "member", "members",
}

// followUpPronouns trigger inheritance of the previous turn's matched
// entity terms. Third person only: "I" or "you" never refer back to a
// profile.
var followUpPronouns = map[string]struct{}{
	"she": {}, "her": {}, "hers": {},
	"he": {}, "him": {}, "his": {},
	"they": {}, "them": {}, "their": {}, "theirs": {},
	"it": {}, "its": {},
}

// interrogatives are excluded from follow-up inheritance: carrying
// "who" from the previous turn into the resolved query adds no entity
// signal.
var interrogatives = map[string]struct{}{
	"who": {}, "whom": {}, "whose": {}, "what": {}, "which": {},
	"where": {}, "when": {}, "why": {}, "how": {},
}

// ScopeService decides whether a query is answerable from the snippet
// store. It combines a curated keyword set with a gazetteer of entity
// tokens (names and category words) derived from the store itself, so
// the notion of "in scope" tracks the actual content.
type ScopeService struct {
	store driven.SnippetStore

	keywords map[string]struct{}

	mu        sync.RWMutex
	gazetteer map[string]struct{}
	dirty     bool
}

// NewScopeService creates a classifier over the given store. Extra
// keywords from configuration extend the built-in vocabulary. The
// gazetteer is built lazily on first classification and rebuilt after
// Invalidate.
func NewScopeService(store driven.SnippetStore, extraKeywords []string) *ScopeService {
	keywords := make(map[string]struct{}, len(domainKeywords)+len(extraKeywords))
	for _, k := range domainKeywords {
		keywords[porterstemmer.StemString(k)] = struct{}{}
	}
	for _, k := range extraKeywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		keywords[porterstemmer.StemString(k)] = struct{}{}
	}
	return &ScopeService{
		store:     store,
		keywords:  keywords,
		gazetteer: make(map[string]struct{}),
		dirty:     true,
	}
}

// Invalidate marks the gazetteer stale. The indexing pipeline calls
// this after every store mutation; the rebuild happens on the next
// classification so bursts of mutations cost one rebuild.
func (s *ScopeService) Invalidate() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Classify judges a single query. priorTerms are the matched terms of
// the most recent in-scope turn in the same conversation; they are
// folded in when the query leans on a pronoun, so "what about her
// background?" resolves against the previously discussed profile.
func (s *ScopeService) Classify(ctx context.Context, query string, priorTerms []string) (domain.ScopeDecision, error) {
	if err := s.refreshGazetteer(ctx); err != nil {
		// Keyword matching still works without the gazetteer; degrade
		// rather than fail the whole turn.
		logger.Warn("scope: gazetteer refresh failed, classifying on keywords only: %v", err)
	}

	rawWords := domain.Words(query)
	contentTokens := domain.Tokenize(query)

	resolvedQuery := strings.TrimSpace(query)
	followUp := false
	if len(priorTerms) > 0 {
		for _, w := range rawWords {
			if _, ok := followUpPronouns[w]; ok {
				followUp = true
				break
			}
		}
		if !followUp && len(contentTokens) == 0 {
			followUp = true
		}
	}

	matched := make([]string, 0, len(contentTokens))
	seen := make(map[string]struct{}, len(contentTokens))
	for _, tok := range contentTokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		if s.matches(tok) {
			matched = append(matched, tok)
		}
	}

	if followUp {
		inherited := make([]string, 0, len(priorTerms))
		for _, t := range priorTerms {
			if _, ok := interrogatives[t]; ok {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			inherited = append(inherited, t)
			matched = append(matched, t)
		}
		if len(inherited) > 0 {
			resolvedQuery = resolvedQuery + " " + strings.Join(inherited, " ")
		}
	}

	decision := domain.ScopeDecision{
		Query:        resolvedQuery,
		Verdict:      domain.ScopeOutOfScope,
		MatchedTerms: matched,
	}
	if len(matched) > 0 {
		decision.Verdict = domain.ScopeInScope
		denom := len(contentTokens)
		if denom == 0 {
			denom = len(matched)
		}
		decision.Confidence = float64(len(matched)) / float64(denom)
		if decision.Confidence > 1.0 {
			decision.Confidence = 1.0
		}
	}

	logger.Debug("scope: %q -> %s (matched %v, confidence %.2f)",
		query, decision.Verdict, decision.MatchedTerms, decision.Confidence)
	return decision, nil
}

// matches reports whether a content token hits the keyword set or the
// gazetteer. Keyword hits are exact stem matches; gazetteer hits also
// allow one typo for tokens of four runes or more.
func (s *ScopeService) matches(token string) bool {
	stem := porterstemmer.StemString(token)
	if _, ok := s.keywords[stem]; ok {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.gazetteer[stem]; ok {
		return true
	}
	if len([]rune(token)) < 4 {
		return false
	}
	for entry := range s.gazetteer {
		if withinOneEdit(stem, entry) {
			return true
		}
	}
	return false
}

// Terms returns the current gazetteer entries sorted, primarily for
// diagnostics.
func (s *ScopeService) Terms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	terms := make([]string, 0, len(s.gazetteer))
	for t := range s.gazetteer {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// refreshGazetteer rebuilds the entity token set from the store when
// marked dirty. Entries are stemmed category tokens plus stemmed
// capitalised tokens from snippet text (names, products).
func (s *ScopeService) refreshGazetteer(ctx context.Context) error {
	s.mu.RLock()
	dirty := s.dirty
	s.mu.RUnlock()
	if !dirty {
		return nil
	}

	snippets, err := s.store.List(ctx, "")
	if err != nil {
		return err
	}

	fresh := make(map[string]struct{}, len(snippets)*4)
	for _, sn := range snippets {
		for _, tok := range domain.Tokenize(sn.Category) {
			fresh[porterstemmer.StemString(tok)] = struct{}{}
		}
		for _, tok := range capitalisedTokens(sn.Text) {
			fresh[porterstemmer.StemString(tok)] = struct{}{}
		}
	}

	s.mu.Lock()
	s.gazetteer = fresh
	s.dirty = false
	s.mu.Unlock()
	logger.Debug("scope: gazetteer rebuilt with %d entries from %d snippets", len(fresh), len(snippets))
	return nil
}

// capitalisedTokens extracts lowercased entity-name candidates: runs of
// letters that start with an upper-case rune, minus stop-words and
// single letters. Case is the only name signal available without NER,
// and for profile text it is a strong one.
func capitalisedTokens(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		runes := []rune(f)
		if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
			continue
		}
		lower := strings.ToLower(f)
		if domain.IsStopWord(lower) {
			continue
		}
		out = append(out, lower)
	}
	return out
}

// withinOneEdit reports whether two strings are within one
// insert/delete/substitute/transpose of each other (optimal string
// alignment distance <= 1).
func withinOneEdit(a, b string) bool {
	if a == b {
		return true
	}
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la > lb {
		ra, rb = rb, ra
		la, lb = lb, la
	}
	switch lb - la {
	case 0:
		// Same length: either one substitution or one transposition.
		i := 0
		for i < la && ra[i] == rb[i] {
			i++
		}
		if i == la {
			return true
		}
		if equalRunes(ra[i+1:], rb[i+1:]) {
			return true
		}
		return i+1 < la && ra[i] == rb[i+1] && ra[i+1] == rb[i] &&
			equalRunes(ra[i+2:], rb[i+2:])
	case 1:
		// One insertion into the shorter string.
		i := 0
		for i < la && ra[i] == rb[i] {
			i++
		}
		return equalRunes(ra[i:], rb[i+1:])
	default:
		return false
	}
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
