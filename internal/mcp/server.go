// Package mcp provides an MCP (Model Context Protocol) server exposing
// bnet inference tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mgriffen/bnet/internal/logging"
	"github.com/mgriffen/bnet/internal/pathutil"
	"github.com/mgriffen/bnet/internal/ratelimit"
	"github.com/mgriffen/bnet/internal/runstore"
)

// Config holds server configuration.
type Config struct {
	Name      string // server name advertised to clients (e.g. "bnet")
	Version   string // server version
	Root      string // directory network definition files may be read from
	StorePath string // run store database; empty keeps runs in memory
	LogLevel  string // verbosity of the stderr logger
}

// Server wraps the MCP SDK server and exposes the bnet inference tools.
// Stdout carries the protocol, so all logging goes to stderr.
type Server struct {
	server       *sdk.Server
	runs         runstore.Store
	root         string
	networkDirs  []string
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters
	logger       *slog.Logger
}

// NewServer creates an MCP server with the bnet tools registered.
func NewServer(cfg *Config) (*Server, error) {
	var runs runstore.Store
	if cfg.StorePath == "" {
		runs = runstore.NewMemoryStore()
	} else {
		sqlStore, err := runstore.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		runs = sqlStore
	}

	networkDirs, err := pathutil.NetworkDirs(cfg.Root)
	if err != nil {
		runs.Close()
		return nil, fmt.Errorf("failed to resolve network directories: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	s := &Server{
		server:       mcpServer,
		runs:         runs,
		root:         cfg.Root,
		networkDirs:  networkDirs,
		auditLogger:  NewAuditLogger(homeDir()),
		toolLimiters: ratelimit.NewToolLimiters(),
		logger:       logging.NewLogger(cfg.LogLevel, os.Stderr),
	}

	s.registerTools()

	return s, nil
}

// homeDir returns the user's home directory, or empty when unknown.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// Run starts the MCP server over stdio transport. It blocks until the
// client disconnects, the context is cancelled, or a shutdown signal
// arrives.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	s.logger.Debug("mcp server starting", "root", s.root)
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.logger.Debug("mcp server stopped")

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	return err
}

// Close releases the run store and audit log. Safe to call more than
// once.
func (s *Server) Close() error {
	var firstErr error
	if err := s.runs.Close(); err != nil {
		firstErr = err
	}
	if err := s.auditLogger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
