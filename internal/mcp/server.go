package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docchat-server/internal/chatbot"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	svc    *chatbot.Service
	logger *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Service *chatbot.Service
	Version string
	Logger  *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "docchat",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Answer a question using the content of the uploaded documents.",
	}, makeQueryHandler(cfg.Service, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "summarize_documents",
		Description: "Summarize all uploaded documents.",
	}, makeSummarizeHandler(cfg.Service, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the uploaded documents with their size and upload time.",
	}, makeListHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat",
		Description: "Send a message to the general-purpose assistant. History is kept per session.",
	}, makeChatHandler(cfg.Service, logger))

	return &Server{
		server: server,
		svc:    cfg.Service,
		logger: logger,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
