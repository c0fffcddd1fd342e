package loader

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

// snippetEntry is the on-disk JSON shape for a snippet.
type snippetEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Category  string `json:"category"`
	SourceRef string `json:"source_ref"`
}

// supportedFile reports whether the loader knows how to parse the file.
func supportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".md", ".markdown", ".txt":
		return true
	default:
		return false
	}
}

// parseFile converts file contents into snippets. JSON files hold a
// single snippet object or an array of them; Markdown and plain-text
// files each yield one snippet.
func parseFile(path string, data []byte) ([]domain.Snippet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(path, data)
	case ".md", ".markdown", ".txt":
		return parseText(path, data), nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func parseJSON(path string, data []byte) ([]domain.Snippet, error) {
	var entries []snippetEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		var single snippetEntry
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		entries = []snippetEntry{single}
	}

	snippets := make([]domain.Snippet, 0, len(entries))
	for _, entry := range entries {
		id := entry.ID
		if id == "" {
			id = uuid.New().String()
		}
		sourceRef := entry.SourceRef
		if sourceRef == "" {
			sourceRef = path
		}
		snippets = append(snippets, domain.Snippet{
			ID:        id,
			Text:      strings.TrimSpace(entry.Text),
			Category:  strings.TrimSpace(entry.Category),
			SourceRef: sourceRef,
		})
	}
	return snippets, nil
}

// parseText turns a Markdown or plain-text file into one snippet. A
// leading Markdown heading becomes the category; the rest is the text.
// The snippet id is derived from the path, so re-parsing the same file
// updates its snippet instead of accumulating duplicates.
func parseText(path string, data []byte) []domain.Snippet {
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil
	}

	category := ""
	if strings.HasPrefix(content, "#") {
		line, rest, _ := strings.Cut(content, "\n")
		category = strings.TrimSpace(strings.TrimLeft(line, "# "))
		content = strings.TrimSpace(rest)
		if content == "" {
			return nil
		}
	}

	return []domain.Snippet{{
		ID:        pathID(path),
		Text:      content,
		Category:  category,
		SourceRef: path,
	}}
}

// pathID derives a stable snippet id from a file path.
func pathID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}
