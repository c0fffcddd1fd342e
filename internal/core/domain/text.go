package domain

import (
	"strings"
	"unicode"
)

// stopWords are tokens with no retrieval signal. They are removed at
// index time and query time alike so both sides agree on the token
// stream. Pronouns are included deliberately: follow-up resolution
// works on raw words, not on this filtered stream.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "up": {}, "about": {},
	"into": {}, "through": {}, "during": {}, "before": {}, "after": {},
	"above": {}, "below": {}, "between": {}, "among": {}, "within": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"may": {}, "might": {}, "must": {}, "can": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "i": {}, "you": {}, "he": {},
	"she": {}, "it": {}, "we": {}, "they": {}, "me": {}, "him": {},
	"her": {}, "us": {}, "them": {},
}

// IsStopWord reports whether a lowercased token is a stop-word.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// Words splits text into lowercased alphanumeric runs, keeping
// stop-words. This is the raw stream scope heuristics operate on.
func Words(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Tokenize normalises text into the canonical token stream shared by
// the lexical index and query handling: lowercase, split on any
// non-alphanumeric rune, drop single-rune tokens and stop-words.
func Tokenize(text string) []string {
	words := Words(text)
	tokens := words[:0]
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		if IsStopWord(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// UniqueTokens returns Tokenize output deduplicated, preserving first
// occurrence order.
func UniqueTokens(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	unique := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	return unique
}
