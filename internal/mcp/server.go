// ABOUTME: MCP server for eureka integration with AI agents.
// ABOUTME: Provides tools, resources, and prompts over the live note store.

package mcp

import (
	"context"

	"github.com/harper/eureka/internal/analysis"
	"github.com/harper/eureka/internal/notebook"
	"github.com/harper/eureka/internal/pdf"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Deps are the services the MCP surface is built on.
type Deps struct {
	Store            *notebook.Store
	Analyst          *analysis.Client
	Exporter         *pdf.Exporter
	OutputDir        string
	ConfirmThreshold int
}

type Server struct {
	server *mcp.Server
	deps   Deps
}

func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}

	s.server = mcp.NewServer(
		&mcp.Implementation{
			Name:    "eureka",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			HasTools:     true,
			HasResources: true,
			HasPrompts:   true,
		},
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

func (s *Server) Serve(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
