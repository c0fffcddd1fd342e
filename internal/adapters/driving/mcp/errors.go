// Package mcp provides an MCP (Model Context Protocol) server adapter for Ansera.
// It lets AI assistants ask questions against the local knowledge base and
// browse the indexed snippets.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
