package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with its search dependency.
type Server struct {
	server *mcp.Server
}

// NewServer creates an MCP server with the search_chunks tool registered.
func NewServer(svc Searcher, version string) *Server {
	impl := &mcp.Implementation{
		Name:    "docsearch",
		Version: version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_chunks",
		Description: "Semantic search over the indexed documents. Returns the closest passages with their file name and page number.",
	}, makeSearchHandler(svc))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
