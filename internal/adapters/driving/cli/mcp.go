package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ansera/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --http to serve Streamable HTTP instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access over the network

Examples:
  # Stdio mode (default, for Claude Desktop)
  ansera mcp

  # HTTP mode (for MCP Inspector, remote access)
  ansera mcp --http :8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "ansera": {
        "command": "/path/to/ansera",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "HTTP listen address, e.g. :8080 (empty = stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ports := &mcp.Ports{
		Answer:    answerService,
		Retrieval: retrievalService,
		Index:     indexService,
		Store:     snippetStore,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		display := mcpHTTPAddr
		if strings.HasPrefix(display, ":") {
			display = "localhost" + display
		}
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", display)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	return server.Run(cmd.Context())
}
