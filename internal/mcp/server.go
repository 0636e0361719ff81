// ABOUTME: MCP server setup for the fitness data store.
// ABOUTME: Exposes coverage, update plans, day tables, series, and summaries over stdio.
package mcp

import (
	"context"

	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/planner"
	"github.com/harperreed/fitlog/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server wraps the MCP server with storage access.
type Server struct {
	mcpServer *mcp.Server
	store     storage.Store
	plan      planner.Options
	today     func() models.Day
}

// NewServer creates a new MCP server over the store. Plan options are used by get_update_plan.
func NewServer(store storage.Store, plan planner.Options) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "fitlog",
			Version: Version,
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		store:     store,
		plan:      plan,
		today:     models.Today,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
