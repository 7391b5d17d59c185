package mcp

import (
	"github.com/lukman83/mhe-storefront/internal/storefront"
	"github.com/mark3labs/mcp-go/server"
)

func newServer(svc *storefront.Service) *server.MCPServer {
	s := server.NewMCPServer(
		"mhe-storefront",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	registerTools(s, svc)
	return s
}

// Serve starts the MCP stdio server with all tools registered.
func Serve(svc *storefront.Service) error {
	return server.ServeStdio(newServer(svc))
}
