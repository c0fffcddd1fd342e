package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/logger"
)

// citationPattern matches [n] markers in answer text.
var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// defaultAnswerSystemPrompt instructs the model to stay inside the
// provided evidence. Overridable through the prompt store.
const defaultAnswerSystemPrompt = `You are an assistant answering questions about the people, roles and teams in a company knowledge base.
Answer using ONLY the numbered context snippets below. Cite every fact with its snippet marker, like [1].
If the context does not contain the answer, say you do not have that information. Never invent names, titles or contact details.
Keep answers short and factual.`

// historyLineLimit caps each condensed history answer so one verbose
// earlier turn cannot eat the whole budget.
const historyLineLimit = 200

// Assembly is the product of context assembly: the generation prompt,
// the snippets that fit under budget, and their citation map.
type Assembly struct {
	// Prompt is the complete generation prompt.
	Prompt string

	// Citations map [n] markers to included snippets, in marker order.
	Citations []domain.Citation

	// Excerpts are the included snippet texts in marker order, kept for
	// the extractive fallback.
	Excerpts []string

	// CharsUsed is the budget consumed by evidence and history.
	CharsUsed int

	// Truncated is true when a retrieved snippet was dropped for budget.
	Truncated bool
}

// Empty reports whether no evidence survived assembly.
func (a Assembly) Empty() bool {
	return len(a.Citations) == 0
}

// AssemblerService builds generation prompts from ranked evidence under
// a hard character budget. Rank order is authority order: once a
// snippet does not fit, everything after it is dropped too, so the
// included set is always a rank prefix.
type AssemblerService struct {
	budget       int
	systemPrompt string
}

// NewAssemblerService creates an assembler with the given character
// budget. An empty systemPrompt selects the built-in one.
func NewAssemblerService(budget int, systemPrompt string) *AssemblerService {
	if budget <= 0 {
		budget = domain.DefaultAppSettings().Answer.ContextBudget
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultAnswerSystemPrompt
	}
	return &AssemblerService{budget: budget, systemPrompt: systemPrompt}
}

// Build assembles the prompt for one query. Evidence is consumed in
// rank order until the budget is spent; conversation history fills
// whatever budget remains, newest turns preferred, rendered oldest
// first.
func (s *AssemblerService) Build(query string, evidence []domain.RetrievedSnippet, history []domain.ConversationTurn) Assembly {
	assembly := Assembly{}

	blocks := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		marker := len(assembly.Citations) + 1
		block := formatEvidenceBlock(marker, ev.Snippet)
		cost := len(block) + 1
		if assembly.CharsUsed+cost > s.budget {
			assembly.Truncated = true
			logger.Debug("Context budget reached at snippet %s (rank %d), dropping remainder",
				ev.Snippet.ID, marker)
			break
		}
		assembly.CharsUsed += cost
		blocks = append(blocks, block)
		assembly.Citations = append(assembly.Citations, domain.Citation{
			Marker:    marker,
			SnippetID: ev.Snippet.ID,
			SourceRef: ev.Snippet.SourceRef,
		})
		assembly.Excerpts = append(assembly.Excerpts, ev.Snippet.Text)
	}

	if assembly.Empty() {
		return assembly
	}

	// Newest history first against the leftover budget, then reversed
	// so the prompt reads chronologically.
	var historyLines []string
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if strings.TrimSpace(turn.Answer) == "" {
			continue
		}
		line := formatHistoryLine(turn)
		cost := len(line) + 1
		if assembly.CharsUsed+cost > s.budget {
			break
		}
		assembly.CharsUsed += cost
		historyLines = append(historyLines, line)
	}
	for i, j := 0, len(historyLines)-1; i < j; i, j = i+1, j-1 {
		historyLines[i], historyLines[j] = historyLines[j], historyLines[i]
	}

	var b strings.Builder
	b.WriteString(s.systemPrompt)
	b.WriteString("\n\n")
	if len(historyLines) > 0 {
		b.WriteString("Conversation so far:\n")
		b.WriteString(strings.Join(historyLines, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(blocks, "\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	assembly.Prompt = b.String()

	logger.Debug("Assembled %d/%d snippets, %d history lines, %d/%d chars",
		len(assembly.Citations), len(evidence), len(historyLines), assembly.CharsUsed, s.budget)
	return assembly
}

// ValidateCitations strips markers the model invented and returns the
// citations it actually used, in marker order. Text that cites nothing
// keeps the full included set so callers can still show provenance.
func (s *AssemblerService) ValidateCitations(text string, included []domain.Citation) (string, []domain.Citation) {
	byMarker := make(map[int]domain.Citation, len(included))
	for _, c := range included {
		byMarker[c.Marker] = c
	}

	used := make(map[int]struct{})
	cleaned := citationPattern.ReplaceAllStringFunc(text, func(match string) string {
		n, err := strconv.Atoi(strings.Trim(match, "[]"))
		if err != nil {
			return match
		}
		if _, ok := byMarker[n]; !ok {
			logger.Warn("Answer cited unknown snippet marker %s, stripping", match)
			return ""
		}
		used[n] = struct{}{}
		return match
	})

	if len(used) == 0 {
		return cleaned, included
	}

	markers := make([]int, 0, len(used))
	for n := range used {
		markers = append(markers, n)
	}
	sort.Ints(markers)
	cited := make([]domain.Citation, 0, len(markers))
	for _, n := range markers {
		cited = append(cited, byMarker[n])
	}
	return cleaned, cited
}

// formatEvidenceBlock renders one snippet as a numbered context entry.
func formatEvidenceBlock(marker int, snippet domain.Snippet) string {
	if snippet.Category == "" {
		return fmt.Sprintf("[%d] %s", marker, snippet.Text)
	}
	return fmt.Sprintf("[%d] (%s) %s", marker, snippet.Category, snippet.Text)
}

// formatHistoryLine condenses one past turn into a single Q/A line.
func formatHistoryLine(turn domain.ConversationTurn) string {
	answer := strings.TrimSpace(turn.Answer)
	if len(answer) > historyLineLimit {
		answer = answer[:historyLineLimit] + "..."
	}
	return fmt.Sprintf("Q: %s\nA: %s", strings.TrimSpace(turn.Query), answer)
}
