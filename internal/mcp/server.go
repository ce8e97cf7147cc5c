// Package mcp exposes risk assessment as Model Context Protocol tools over
// stdio, so an agent can score submissions and browse assessment history.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
	"github.com/neuro-risk-client/internal/service"
)

// Server is the MCP server. It owns the history store unless one was
// supplied with WithHistoryStore.
type Server struct {
	config     *domain.Config
	mcpServer  *mcp.Server
	stack      *service.Stack
	store      history.Store
	ownsStore  bool
	exportDir  string
	registerer prometheus.Registerer
	logger     *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithHistoryStore sets a custom history store.
func WithHistoryStore(store history.Store) ServerOption {
	return func(s *Server) error {
		if store == nil {
			return fmt.Errorf("history store is nil")
		}
		s.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithExportDir sets the directory export_history writes into.
func WithExportDir(dir string) ServerOption {
	return func(s *Server) error {
		s.exportDir = dir
		return nil
	}
}

// WithRegisterer records assessment metrics to reg.
func WithRegisterer(reg prometheus.Registerer) ServerOption {
	return func(s *Server) error {
		s.registerer = reg
		return nil
	}
}

// NewServer creates a new MCP server instance.
func NewServer(ctx context.Context, cfg *domain.Config, opts ...ServerOption) (*Server, error) {
	server := &Server{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if server.logger == nil {
		server.logger = logrus.New()
	}

	if server.store == nil {
		store, err := history.Open(ctx, cfg, server.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		server.store = store
		server.ownsStore = true
	}

	stack, err := service.NewStack(cfg, server.store, server.logger, server.registerer)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("failed to build assessment stack: %w", err)
	}
	server.stack = stack

	name := cfg.MCP.ServerName
	if name == "" {
		name = "neuro-risk"
	}
	version := cfg.MCP.ServerVersion
	if version == "" {
		version = "1.0.0"
	}

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)
	server.registerTools()

	server.logger.WithFields(logrus.Fields{
		"server":  name,
		"version": version,
		"history": cfg.History.Backend,
	}).Info("MCP server initialized")
	return server, nil
}

// registerTools registers every tool with the MCP SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "assess_risk",
		Description: "Assess neurological risk for a patient submission. condition is alzheimer, parkinson or epilepsy; " +
			"features holds the condition's measurements (nested objects for parkinson and epilepsy). " +
			"The remote prediction model is tried first and the local heuristic is used when it is unreachable.",
	}, s.handleAssessRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "score_locally",
		Description: "Score a submission with the offline heuristic only, without contacting the prediction servers. Not available for epilepsy.",
	}, s.handleScoreLocally)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_history",
		Description: "List recent assessments, newest first. Optionally filter by condition and source (remote or fallback).",
	}, s.handleListHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_history",
		Description: "Export the assessment history to a JSON or XLSX file and return its path.",
	}, s.handleExportHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "check_endpoints",
		Description: "Probe the health endpoint of every configured prediction server.",
	}, s.handleCheckEndpoints)

	s.logger.WithField("tool_count", 5).Debug("Registered MCP tools")
}

// Run serves the MCP protocol on stdin/stdout until ctx is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting neuro risk MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close history store")
			return err
		}
	}
	return nil
}

// HistoryStore returns the history store, which may be nil when history is disabled.
func (s *Server) HistoryStore() history.Store {
	return s.store
}
