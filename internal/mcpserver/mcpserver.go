// Package mcpserver exposes the code intelligence analyses as MCP tools.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/insight/internal/service/analysis"
	"github.com/panbanda/insight/pkg/security"
)

// Server wraps the MCP server and registers all insight analysis tools.
type Server struct {
	server  *mcp.Server
	svc     *analysis.Service
	scanner *security.Scanner
}

// Option configures a Server.
type Option func(*Server)

// WithScanner replaces the security scanner used by scan_security.
func WithScanner(sc *security.Scanner) Option {
	return func(s *Server) {
		s.scanner = sc
	}
}

// NewServer creates a new MCP server with all insight tools registered.
func NewServer(version string, svc *analysis.Service, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "insight",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, svc: svc, scanner: security.NewScanner()}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds all insight analyzer tools to the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_complexity",
		Description: describeComplexity(),
	}, s.handleAnalyzeComplexity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_orphans",
		Description: describeOrphans(),
	}, s.handleAnalyzeOrphans)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_patterns",
		Description: describePatterns(),
	}, s.handleAnalyzePatterns)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_similarity",
		Description: describeSimilarity(),
	}, s.handleAnalyzeSimilarity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_all",
		Description: describeAll(),
	}, s.handleAnalyzeAll)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "focused_context",
		Description: describeFocusedContext(),
	}, s.handleFocusedContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "scan_security",
		Description: describeSecurity(),
	}, s.handleScanSecurity)
}
