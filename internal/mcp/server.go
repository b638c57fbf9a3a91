// Package mcp exposes siteaudit to coding agents over the Model Context
// Protocol on stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/report"
)

// Version is set via ldflags at build time.
var Version = "dev"

// ScanFunc scans the configured site, limited to the named rules when
// rules is non-empty.
type ScanFunc func(ctx context.Context, rules []string) (*report.Report, error)

// Server wraps an MCP server that exposes the scanner and run history.
type Server struct {
	scan  ScanFunc
	store *history.Store
	mcp   *server.MCPServer
}

// NewServer creates a new MCP server. store may be nil, in which case scans
// are not recorded and the history tools report that no database is open.
func NewServer(scan ScanFunc, store *history.Store) *Server {
	s := &Server{scan: scan, store: store}

	s.mcp = server.NewMCPServer(
		"siteaudit",
		Version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(scanSiteTool, s.handleScanSite)
	s.mcp.AddTool(listRunsTool, s.handleListRuns)
	s.mcp.AddTool(getRunTool, s.handleGetRun)
	s.mcp.AddTool(diffRunsTool, s.handleDiffRuns)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
