package services

import "strings"

// Default response template variants. The answering pipeline rotates
// through each set by turn index so a second scope miss in the same
// conversation does not read like a stuck record. All of these can be
// overridden through the prompt store; multi-variant files separate
// variants with lines containing only "---".
var defaultGreetings = []string{
	"Hello! Ask me about the people, roles and teams in this knowledge base.",
	"Hi there! I can answer questions about who does what here - try \"who is the CEO?\".",
	"Hey! Happy to help with questions about people and their roles.",
}

var defaultOutOfScope = []string{
	"That's outside what I know about. I can answer questions about %s.",
	"I don't have information on that. My knowledge covers %s - ask me something in that area.",
	"Sorry, that's not something I can look up. I can help with questions about %s.",
}

var defaultNoEvidence = []string{
	"I couldn't find a matching profile for that. Try a different name or role.",
	"No profile in the knowledge base matches that query. Perhaps check the spelling or ask about a team instead.",
	"Nothing in the knowledge base matches that. I may simply not have that profile.",
}

var defaultExtractiveNote = []string{
	"I couldn't generate a summary, so here are the most relevant excerpts:",
}

// variantSeparator splits a multi-variant template file.
const variantSeparator = "---"

// splitVariants parses a template file into its variants. Lines
// containing only "---" separate variants; empty variants are dropped.
// A file with no separators is a single variant.
func splitVariants(raw string) []string {
	var variants []string
	var current []string

	flush := func() {
		v := strings.TrimSpace(strings.Join(current, "\n"))
		if v != "" {
			variants = append(variants, v)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == variantSeparator {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return variants
}

// pickVariant rotates deterministically through variants by turn index.
func pickVariant(variants []string, turnIndex int) string {
	if len(variants) == 0 {
		return ""
	}
	if turnIndex < 0 {
		turnIndex = 0
	}
	return variants[turnIndex%len(variants)]
}
