// Package mcp exposes the PFT interpretation engine as Model Context Protocol
// tools over stdio. It needs no database and no network unless a Gemini API
// key is configured.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pft-analyzer-server/internal/config"
	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/extraction"
	"github.com/pft-analyzer-server/internal/gemini"
	"github.com/pft-analyzer-server/internal/logging"
	"github.com/pft-analyzer-server/internal/narrative"
	"github.com/pft-analyzer-server/internal/service"
)

// Server metadata reported to MCP clients.
const (
	ServerName    = "pft-analyzer-mcp"
	ServerVersion = "v0.1.0"
)

// Server is the MCP server for PFT interpretation.
type Server struct {
	config      *config.LiteConfig
	mcpServer   *mcp.Server
	interpreter *service.Interpreter
	parser      *service.MeasurementParser
	style       narrative.Style
	extractor   domain.DocumentExtractor
	opinion     domain.OpinionProvider
	client      *gemini.Client
	tools       []string
	now         func() time.Time
	logger      *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithExtractor sets the document extractor instead of building one from the
// Gemini settings.
func WithExtractor(extractor domain.DocumentExtractor) ServerOption {
	return func(s *Server) error {
		s.extractor = extractor
		return nil
	}
}

// WithOpinion sets the opinion provider instead of building one from the
// Gemini settings.
func WithOpinion(opinion domain.OpinionProvider) ServerOption {
	return func(s *Server) error {
		s.opinion = opinion
		return nil
	}
}

// NewServer creates a new MCP server instance.
func NewServer(cfg *config.LiteConfig, opts ...ServerOption) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	style, err := narrative.ParseStyle(cfg.ReportStyle)
	if err != nil {
		return nil, err
	}

	server := &Server{
		config: cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
		style:  style,
		now:    time.Now,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	server.interpreter = service.NewInterpreter(server.logger)
	server.parser = service.NewMeasurementParser(server.logger)

	if err := server.initCollaborators(); err != nil {
		return nil, err
	}

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)
	server.registerTools()

	server.logger.WithFields(logrus.Fields{
		"tools":      server.tools,
		"extraction": server.extractor != nil,
		"opinion":    server.opinion != nil,
	}).Info("MCP server initialized")
	return server, nil
}

// initCollaborators builds the extraction chain and opinion provider that
// were not supplied as options. Without an API key only text extraction is
// available.
func (s *Server) initCollaborators() error {
	if s.extractor != nil && s.opinion != nil {
		return nil
	}

	var generator gemini.Generator
	if s.config.HasGemini() {
		client, err := gemini.NewClient(context.Background(), s.config.GeminiConfig(), s.logger)
		if err != nil && !errors.Is(err, domain.ErrNoAPIKey) {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
		if client != nil {
			s.client = client
			generator = client
		}
	}

	if s.extractor == nil {
		s.extractor = extraction.NewDefaultChain(generator, domain.ExtractionConfig{
			Models:             s.config.ExtractionModels,
			EnableTextPatterns: true,
		}, s.logger)
	}

	if s.opinion == nil {
		opinion, err := narrative.NewOpinionProvider(generator, domain.NarrativeConfig{
			Enabled:   true,
			Model:     s.config.NarrativeModel,
			CacheSize: s.config.OpinionCacheSize,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create opinion provider: %w", err)
		}
		s.opinion = opinion
	}
	return nil
}

// Tools returns the names of the registered tools.
func (s *Server) Tools() []string {
	out := make([]string, len(s.tools))
	copy(out, s.tools)
	return out
}

// Start serves MCP requests on stdin/stdout until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("transport_type", s.config.Transport).Info("Starting PFT MCP server...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close gemini client")
			return err
		}
	}
	return nil
}
