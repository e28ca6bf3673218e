// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mcp exposes the search pipeline as Model Context Protocol tools
// served over stdio.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/pkg/types"
)

// ServerName is the name announced during the MCP handshake.
const ServerName = "matsearch"

// Searcher is the pipeline the tools call.
type Searcher interface {
	Search(ctx context.Context, raw query.RawRequest) (types.SearchResult, error)
	Paper(ctx context.Context, id string) (types.PaperRecord, error)
}

// Server wraps the MCP server with the search pipeline.
type Server struct {
	mcp    *server.MCPServer
	svc    Searcher
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an MCP server with the search_papers, get_paper and
// list_fields tools registered.
func NewServer(svc Searcher, version string, opts ...Option) *Server {
	s := &Server{
		mcp:    server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
		svc:    svc,
		logger: slog.Default().With("component", "mcp"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp.AddTool(searchPapersTool(), s.handleSearchPapers)
	s.mcp.AddTool(getPaperTool(), s.handleGetPaper)
	s.mcp.AddTool(listFieldsTool(), s.handleListFields)
	return s
}

// ServeStdio serves on stdin/stdout and blocks until the client
// disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}
