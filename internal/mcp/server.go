package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(live Live, ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepFlow", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepFlow guided workout server. Inspect the live session state and query past session history and per-exercise performance."),
	)

	h := &handlers{live: live, ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetActiveSession, Handler: h.getActiveSession},
		server.ServerTool{Tool: toolGetLastPerformance, Handler: h.getLastPerformance},
		server.ServerTool{Tool: toolGetRecentSessions, Handler: h.getRecentSessions},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resActiveSession, Handler: h.activeSession},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	live Live
	ds   DataSource
	log  *slog.Logger
}

// --- Resource definitions ---

var resActiveSession = mcp.NewResource(
	"repflow://active_session",
	"Active Session",
	mcp.WithResourceDescription("Live snapshot of the in-progress workout: state, current exercise and set, elapsed time, and rest countdown"),
	mcp.WithMIMEType("application/json"),
)
