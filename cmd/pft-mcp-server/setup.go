package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pft-analyzer-server/internal/config"
	"github.com/pft-analyzer-server/internal/setup"
)

func newSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register this server with Claude Desktop",
	}

	var configPath string
	cmd.PersistentFlags().StringVar(&configPath, "claude-config", "", "Claude Desktop config file (default: platform location)")
	resolve := func() (string, error) {
		if configPath != "" {
			return configPath, nil
		}
		return setup.ClaudeDesktopConfigPath()
	}

	cmd.AddCommand(
		newClaudeDesktopCommand(resolve),
		newStatusCommand(resolve),
		newRemoveCommand(resolve),
	)
	return cmd
}

func newClaudeDesktopCommand(resolve func() (string, error)) *cobra.Command {
	var (
		opts      setup.Options
		withKey   bool
		autoApply bool
	)

	cmd := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Add or update the Claude Desktop entry for this server",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolve()
			if err != nil {
				return err
			}
			if opts.BinaryPath == "" {
				if exe, err := os.Executable(); err == nil {
					opts.BinaryPath = exe
				}
			}
			if opts.ReportStyle != "" {
				lite := config.DefaultLiteConfig()
				lite.ReportStyle = opts.ReportStyle
				if err := lite.Validate(); err != nil {
					return err
				}
			}
			if withKey {
				opts.GeminiAPIKey = config.LoadLiteConfig().GeminiAPIKey
				if opts.GeminiAPIKey == "" {
					return fmt.Errorf("--with-gemini-key given but no Gemini API key is set in the environment")
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Claude Desktop Configuration")
			fmt.Fprintln(out, "============================")
			fmt.Fprintf(out, "Config file:   %s\n", configPath)
			fmt.Fprintf(out, "Server binary: %s\n", opts.BinaryPath)
			if opts.DataDir != "" {
				fmt.Fprintf(out, "Data directory: %s\n", opts.DataDir)
			}
			fmt.Fprintf(out, "Gemini key:    %t\n\n", opts.GeminiAPIKey != "")

			if !autoApply && !confirm(cmd, "Proceed with configuration? [Y/n]: ") {
				fmt.Fprintln(out, "Configuration cancelled.")
				return nil
			}

			if _, err := setup.Configure(configPath, opts); err != nil {
				return fmt.Errorf("failed to configure Claude Desktop: %w", err)
			}

			fmt.Fprintln(out, "Claude Desktop configured. Restart Claude Desktop to load the PFT tools.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.BinaryPath, "binary", "b", "", "server binary path (default: this executable)")
	cmd.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "directory for saved reports")
	cmd.Flags().StringVar(&opts.ReportStyle, "style", "", "finding text style: plain or markdown")
	cmd.Flags().BoolVar(&withKey, "with-gemini-key", false, "copy the Gemini API key from the environment into the entry")
	cmd.Flags().BoolVarP(&autoApply, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newStatusCommand(resolve func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the Claude Desktop integration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolve()
			if err != nil {
				return err
			}
			status, err := setup.GetStatus(configPath, config.DefaultLiteConfig().DataDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", status.ConfigPath)
			fmt.Fprintf(out, "Configured:  %t\n", status.Configured)
			if status.Configured {
				fmt.Fprintf(out, "Binary:      %s\n", status.ServerPath)
				fmt.Fprintf(out, "Gemini key:  %t\n", status.HasGemini)
			}
			fmt.Fprintf(out, "Data dir:    %s\n", status.DataDir)
			for _, issue := range status.Issues {
				fmt.Fprintf(out, "  ! %s\n", issue)
			}
			return nil
		},
	}
}

func newRemoveCommand(resolve func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove this server from Claude Desktop",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolve()
			if err != nil {
				return err
			}
			removed, err := setup.Remove(configPath)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintln(cmd.OutOrStdout(), "Removed the PFT analyzer entry.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No PFT analyzer entry found.")
			}
			return nil
		},
	}
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "" || response == "y" || response == "yes"
}
