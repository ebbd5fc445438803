// Package main runs the PFT interpretation MCP server over stdio. It needs no
// database; Gemini features are enabled when an API key is set.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pft-analyzer-server/internal/config"
	"github.com/pft-analyzer-server/internal/mcp"
)

func main() {
	root := &cobra.Command{
		Use:           "pft-mcp-server",
		Short:         "PFT interpretation tools for MCP clients",
		Version:       mcp.ServerVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(newSetupCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve() error {
	// Load lightweight configuration
	cfg := config.LoadLiteConfig()

	server, err := mcp.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}
