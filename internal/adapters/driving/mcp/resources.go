package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Ansera resources.
	uriScheme = "ansera://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing snippets.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "snippets",
		Name:        "snippets",
		Description: "List of all indexed knowledge snippets",
		MIMEType:    "application/json",
	}, s.handleSnippetsResource)

	// Static resource for listing categories.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "categories",
		Name:        "categories",
		Description: "Distinct snippet categories",
		MIMEType:    "application/json",
	}, s.handleCategoriesResource)

	// Template for individual snippets.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "snippets/{snippetId}",
		Name:        "snippet",
		Description: "A single knowledge snippet with its full text",
		MIMEType:    "application/json",
	}, s.handleSnippetResource)
}

// handleSnippetsResource returns a listing of every stored snippet.
func (s *Server) handleSnippetsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Store == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	snippets, err := s.ports.Store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	// Build simplified snippet list; full text lives behind the
	// per-snippet resource.
	type snippetInfo struct {
		ID        string `json:"id"`
		Category  string `json:"category,omitempty"`
		SourceRef string `json:"source_ref,omitempty"`
	}

	infos := make([]snippetInfo, len(snippets))
	for i := range snippets {
		infos[i] = snippetInfo{
			ID:        snippets[i].ID,
			Category:  snippets[i].Category,
			SourceRef: snippets[i].SourceRef,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling snippets: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleCategoriesResource returns the distinct snippet categories.
func (s *Server) handleCategoriesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Store == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	categories, err := s.ports.Store.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling categories: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSnippetResource returns one snippet with its full text.
func (s *Server) handleSnippetResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Store == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract snippetId from URI: ansera://snippets/{snippetId}
	snippetID := extractSnippetID(req.Params.URI)
	if snippetID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	snippet, err := s.ports.Store.Get(ctx, snippetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting snippet: %w", err)
	}

	type snippetBody struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Category  string `json:"category,omitempty"`
		SourceRef string `json:"source_ref,omitempty"`
		UpdatedAt int64  `json:"updated_at"`
	}

	data, err := json.MarshalIndent(snippetBody{
		ID:        snippet.ID,
		Text:      snippet.Text,
		Category:  snippet.Category,
		SourceRef: snippet.SourceRef,
		UpdatedAt: snippet.UpdatedAt,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling snippet: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSnippetID extracts the snippet ID from a URI like ansera://snippets/{snippetId}.
func extractSnippetID(uri string) string {
	const prefix = uriScheme + "snippets/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
