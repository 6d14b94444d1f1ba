package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	qblog "github.com/querybee/querybee/internal/log"
	"github.com/querybee/querybee/internal/relay"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the relay as tools.
type Server struct {
	relay *relay.Relay
	mcp   *server.MCPServer
	log   zerolog.Logger
}

// NewServer creates a new MCP server backed by the given relay.
func NewServer(rl *relay.Relay) *Server {
	s := &Server{relay: rl, log: qblog.WithComponent("mcp")}

	s.mcp = server.NewMCPServer(
		"querybee",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askTool, s.handleAsk)
	s.mcp.AddTool(statusTool, s.handleStatus)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	s.log.Info().Str("version", Version).Msg("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}
