package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/ansera/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads response templates from user-editable files on disk.
// Templates are loaded from a configurable directory with fallback to
// embedded defaults.
//
// The store uses lazy initialisation - files are only created when first
// accessed, not in the constructor. This makes testing easier and avoids
// unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default templates.
// These are used when user files don't exist and as the initial content
// for new files. Multi-variant templates separate variants with lines
// containing only "---"; the answering pipeline rotates through them.
//
//nolint:lll // Template content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptAnswerSystem: `You are an assistant answering questions about the people, roles and teams in a company knowledge base.
Answer using ONLY the numbered context snippets below. Cite every fact with its snippet marker, like [1].
If the context does not contain the answer, say you do not have that information. Never invent names, titles or contact details.
Keep answers short and factual.`,

	driven.PromptGreeting: `Hello! Ask me about the people, roles and teams in this knowledge base.
---
Hi there! I can answer questions about who does what here - try "who is the CEO?".
---
Hey! Happy to help with questions about people and their roles.`,

	driven.PromptOutOfScope: `That's outside what I know about. I can answer questions about %s.
---
I don't have information on that. My knowledge covers %s - ask me something in that area.
---
Sorry, that's not something I can look up. I can help with questions about %s.`,

	driven.PromptNoEvidence: `I couldn't find a matching profile for that. Try a different name or role.
---
No profile in the knowledge base matches that query. Perhaps check the spelling or ask about a team instead.
---
Nothing in the knowledge base matches that. I may simply not have that profile.`,

	driven.PromptExtractiveNote: `I couldn't generate a summary, so here are the most relevant excerpts:`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.ansera/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".ansera", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load template %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the template cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default template files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default template %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a template from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Ansera Templates

This directory contains customisable response templates used by ansera's
answering pipeline.

## Files

- ` + "`answer_system.txt`" + ` - System preamble for grounded answer generation
- ` + "`greeting.txt`" + ` - Greeting reply variants
- ` + "`out_of_scope.txt`" + ` - Out-of-domain redirect variants
- ` + "`no_evidence.txt`" + ` - "No matching profile" variants
- ` + "`extractive_note.txt`" + ` - Preamble shown above raw excerpts when no LLM is configured

## Customisation

Edit any file to change how ansera replies. Changes take effect on the
next command or new chat session.

Files holding several variants separate them with a line containing only
` + "`---`" + `; the pipeline rotates through variants across turns.

## Format Placeholders

Variants in ` + "`out_of_scope.txt`" + ` use the Go fmt placeholder ` + "`%s`" + `
for the suggested topics. Keep exactly one ` + "`%s`" + ` in each variant.
`
	return os.WriteFile(path, []byte(content), 0600)
}
