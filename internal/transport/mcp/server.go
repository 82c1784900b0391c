package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	librarysvc "github.com/alanyang/prompt-workshop/internal/service/library"
	studiosvc "github.com/alanyang/prompt-workshop/internal/service/studio"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// [SRP] HTTP server lifecycle only. Tools are registered in tools.go,
// prompts in prompts.go.
type Server struct {
	mcpSrv  *mcpserver.MCPServer
	httpSrv *mcpserver.StreamableHTTPServer
}

// New creates the MCP transport server exposing the studio and library to
// MCP clients.
func New(studio *studiosvc.Service, lib *librarysvc.Service, version string) *Server {
	hooks := &mcpserver.Hooks{}
	hooks.OnRegisterSession = append(hooks.OnRegisterSession, func(ctx context.Context, session mcpserver.ClientSession) {
		slog.InfoContext(ctx, "mcp: session opened", "session_id", session.SessionID())
	})
	hooks.OnUnregisterSession = append(hooks.OnUnregisterSession, func(ctx context.Context, session mcpserver.ClientSession) {
		slog.InfoContext(ctx, "mcp: session closed", "session_id", session.SessionID())
	})

	mcpSrv := mcpserver.NewMCPServer(
		"prompt-workshop",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithHooks(hooks),
	)

	RegisterTools(mcpSrv, studio, lib)
	RegisterPrompts(mcpSrv, lib)

	return &Server{
		mcpSrv:  mcpSrv,
		httpSrv: mcpserver.NewStreamableHTTPServer(mcpSrv),
	}
}

// Handler returns an http.Handler that serves the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

// MCPServer exposes the underlying server, mainly for in-process clients in tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpSrv
}
