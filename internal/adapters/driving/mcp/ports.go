package mcp

import (
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
	"github.com/custodia-labs/ansera/internal/core/ports/driving"
)

// Ports aggregates the port interfaces the MCP server exposes.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer answers questions against the knowledge base.
	Answer driving.AnswerService

	// Retrieval provides raw ranked retrieval for the search tool.
	Retrieval driving.RetrievalService

	// Index provides reindexing and stats.
	Index driving.IndexAdmin

	// Store feeds the snippet browse resources.
	Store driven.SnippetStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	// Retrieval, Index and Store are optional; the matching tools and
	// resources are simply not registered without them.
	return nil
}
