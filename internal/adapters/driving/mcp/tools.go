package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query          string `json:"query" jsonschema:"the question to answer from the knowledge base"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"session id for follow-up questions; omit for a one-shot query"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string           `json:"answer"`
	Kind       string           `json:"kind"`
	Verdict    string           `json:"verdict"`
	Confidence float64          `json:"confidence"`
	TurnIndex  int              `json:"turn_index"`
	Citations  []CitationOutput `json:"citations,omitempty"`
}

// CitationOutput ties an answer marker to its snippet source.
type CitationOutput struct {
	Marker    int    `json:"marker"`
	SnippetID string `json:"snippet_id"`
	SourceRef string `json:"source_ref,omitempty"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find snippets"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single fused retrieval result.
type SearchResultOutput struct {
	SnippetID string  `json:"snippet_id"`
	Category  string  `json:"category,omitempty"`
	SourceRef string  `json:"source_ref,omitempty"`
	Score     float64 `json:"score"`
	Origin    string  `json:"origin"`
	Text      string  `json:"text"`
}

// ReindexInput is the input schema for the reindex tool.
type ReindexInput struct{}

// StatsInput is the input schema for the index_stats tool.
type StatsInput struct{}

// StatsOutput reports index and store counts.
type StatsOutput struct {
	LexicalCount int    `json:"lexical_count"`
	VectorCount  int    `json:"vector_count"`
	StoreCount   int    `json:"store_count"`
	Degraded     int    `json:"degraded"`
	LastSync     string `json:"last_sync,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
// Tools whose ports were not injected are left unregistered.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question about the people and teams in the knowledge base",
	}, s.handleAsk)

	if s.ports.Retrieval != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "search",
			Description: "Search the knowledge base and return ranked snippets without answering",
		}, s.handleSearch)
	}

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "reindex",
			Description: "Rebuild both retrieval indexes from the snippet store",
		}, s.handleReindex)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_stats",
			Description: "Report index and store counts",
		}, s.handleStats)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Answer.Ask(ctx, input.Query, input.ConversationID)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:     answer.Text,
		Kind:       string(answer.Kind),
		Verdict:    string(answer.Scope.Verdict),
		Confidence: answer.Scope.Confidence,
		TurnIndex:  answer.TurnIndex,
	}
	for _, citation := range answer.Citations {
		output.Citations = append(output.Citations, CitationOutput{
			Marker:    citation.Marker,
			SnippetID: citation.SnippetID,
			SourceRef: citation.SourceRef,
		})
	}

	return nil, output, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	result, err := s.ports.Retrieval.Retrieve(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	retrieved, err := s.ports.Retrieval.Hydrate(ctx, result)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(retrieved)),
		Count:   len(retrieved),
	}
	for i := range retrieved {
		output.Results[i] = SearchResultOutput{
			SnippetID: retrieved[i].Snippet.ID,
			Category:  retrieved[i].Snippet.Category,
			SourceRef: retrieved[i].Snippet.SourceRef,
			Score:     retrieved[i].Ranked.FusedScore,
			Origin:    string(retrieved[i].Ranked.Origin),
			Text:      retrieved[i].Snippet.Text,
		}
	}

	return nil, output, nil
}

// handleReindex handles the reindex tool invocation.
func (s *Server) handleReindex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ReindexInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Index.ReindexAll(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, statsOutput(stats), nil
}

// handleStats handles the index_stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Index.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, statsOutput(stats), nil
}

func statsOutput(stats domain.IndexStats) StatsOutput {
	output := StatsOutput{
		LexicalCount: stats.LexicalCount,
		VectorCount:  stats.VectorCount,
		StoreCount:   stats.StoreCount,
		Degraded:     stats.Degraded,
	}
	if !stats.LastSyncTime.IsZero() {
		output.LastSync = stats.LastSyncTime.Format(time.RFC3339)
	}
	return output
}
