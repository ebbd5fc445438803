// Package main runs the PFT interpretation HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pft-analyzer-server/internal/api"
	"github.com/pft-analyzer-server/internal/config"
	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/extraction"
	"github.com/pft-analyzer-server/internal/gemini"
	"github.com/pft-analyzer-server/internal/logging"
	"github.com/pft-analyzer-server/internal/narrative"
	"github.com/pft-analyzer-server/internal/service"
	"github.com/pft-analyzer-server/internal/session"
)

func main() {
	var configFile string

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the PFT interpretation HTTP API",
		Version:       api.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to a config file (default: search ./config.yaml, ./config/, /etc/pft-analyzer/)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	// Load configuration
	configManager, err := config.NewManagerWithFile(configFile)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := session.NewStore(ctx, cfg.Session, logger)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}
	defer store.Close()

	var generator gemini.Generator
	client, err := gemini.NewClient(ctx, cfg.Gemini, logger)
	switch {
	case errors.Is(err, domain.ErrNoAPIKey):
		logger.Warn("No Gemini API key configured, image and PDF extraction and AI opinions are disabled")
	case err != nil:
		return fmt.Errorf("failed to create gemini client: %w", err)
	default:
		defer client.Close()
		generator = client
	}

	extractor := extraction.NewDefaultChain(generator, cfg.Extraction, logger)
	opinion, err := narrative.NewOpinionProvider(generator, cfg.Narrative, logger)
	if err != nil {
		return fmt.Errorf("failed to create opinion provider: %w", err)
	}

	analyzer := service.NewAnalyzer(logger, store, extractor, opinion)
	server := api.NewServer(configManager, analyzer, logger)

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
		"sessions":    cfg.Session.Backend,
		"strategies":  extractor.Strategies(),
		"narrative":   opinion != nil,
	}).Info("Starting PFT analyzer server")

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
