package driven

// PromptStore provides access to response templates and prompts.
// Implementations may load them from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the template for the given name.
	// If the template is not found, implementations should return a
	// sensible default or an error, depending on whether it is required.
	Load(name string) (string, error)

	// Reload clears any cached templates, forcing fresh loads on next
	// access. Useful when templates may have been edited on disk.
	Reload()
}

// Well-known template names used throughout the application.
// These constants define the contract between consumers and providers.
// Files holding multiple variants separate them with lines containing
// only "---"; the answering pipeline rotates through variants by turn.
const (
	// PromptAnswerSystem is the system preamble for grounded answering.
	// This template has no format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptGreeting holds the greeting reply variants.
	PromptGreeting = "greeting"

	// PromptOutOfScope holds the out-of-domain redirect variants.
	// Each variant expects a %s placeholder for category suggestions.
	PromptOutOfScope = "out_of_scope"

	// PromptNoEvidence holds the "no matching profile" variants.
	PromptNoEvidence = "no_evidence"

	// PromptExtractiveNote prefixes extractive answers so raw excerpts
	// are never passed off as synthesis. No format placeholders.
	PromptExtractiveNote = "extractive_note"
)

// PromptStoreAware is an optional interface for services that can use
// custom templates, injected after construction. Without one, services
// fall back to their hardcoded defaults.
type PromptStoreAware interface {
	// SetPromptStore sets the store for loading customisable templates.
	SetPromptStore(store PromptStore)
}
