// Package main is a command line front end to the PFT interpretation engine.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pft-analyzer-server/internal/config"
	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/extraction"
	"github.com/pft-analyzer-server/internal/gemini"
	"github.com/pft-analyzer-server/internal/logging"
	"github.com/pft-analyzer-server/internal/narrative"
	"github.com/pft-analyzer-server/internal/service"
)

type app struct {
	cfg     *config.LiteConfig
	logger  *logrus.Logger
	output  string
	style   string
	verbose bool
}

func main() {
	a := &app{cfg: config.LoadLiteConfig()}

	root := &cobra.Command{
		Use:           "pftctl",
		Short:         "Interpret pulmonary function tests from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.output != "text" && a.output != "json" {
				return fmt.Errorf("unknown output format %q", a.output)
			}
			level := "warn"
			if a.verbose {
				level = a.cfg.LogLevel
			}
			a.logger = logging.New(level, a.cfg.LogFormat)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text or json")
	root.PersistentFlags().StringVar(&a.style, "style", a.cfg.ReportStyle, "finding text style: plain or markdown")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at PFT_LOG_LEVEL instead of warn")

	root.AddCommand(
		a.interpretCommand(),
		a.severityCommand(),
		a.reportCommand(),
		a.extractCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// measurementFlags registers one float flag per parameter.
func (a *app) measurementFlags(cmd *cobra.Command) func() (domain.Measurement, error) {
	values := make(map[domain.Parameter]*float64, len(domain.AllParameters()))
	for _, p := range domain.AllParameters() {
		values[p] = cmd.Flags().Float64(string(p), 0, p.Label())
	}

	return func() (domain.Measurement, error) {
		numbers := make(map[string]float64)
		for p, v := range values {
			if cmd.Flags().Changed(string(p)) {
				numbers[string(p)] = *v
			}
		}
		return service.NewMeasurementParser(a.logger).FromNumbers(numbers)
	}
}

func (a *app) interpretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "interpret",
		Short:   "Interpret a set of PFT values",
		Example: "  pftctl interpret --FEV1_FVC 56 --FEV1_pred 60 --FVC_pred 82 --DLCO_pred 59",
	}
	measurement := a.measurementFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		m, err := measurement()
		if err != nil {
			return err
		}
		return a.printInterpretation(cmd.OutOrStdout(), service.NewInterpreter(a.logger).Interpret(m))
	}
	return cmd
}

func (a *app) severityCommand() *cobra.Command {
	var parameter string

	cmd := &cobra.Command{
		Use:   "severity VALUE",
		Short: "Grade a percent predicted value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value float64
			if _, err := fmt.Sscanf(args[0], "%g", &value); err != nil {
				return fmt.Errorf("value must be a number: %q", args[0])
			}
			kind, ok := domain.ResolveParameter(parameter)
			if !ok || !kind.IsPercentPredicted() {
				return fmt.Errorf("parameter %q is not a %% predicted parameter", parameter)
			}

			severity, tier := service.ClassifySeverity(value, kind)
			if a.output == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"parameter": kind,
					"value":     value,
					"severity":  severity,
					"tier":      tier,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s (%s)\n", kind.Label(), narrative.FormatValue(value), severity, tier)
			return nil
		},
	}
	cmd.Flags().StringVarP(&parameter, "parameter", "p", string(domain.FEV1Pred), "percent predicted parameter being graded")
	return cmd
}

func (a *app) reportCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the plain-text report for a set of PFT values",
	}
	measurement := a.measurementFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		m, err := measurement()
		if err != nil {
			return err
		}
		now := time.Now()
		report := narrative.BuildReport(m, service.NewInterpreter(a.logger).Interpret(m), now)

		if !save {
			_, err := io.WriteString(cmd.OutOrStdout(), report)
			return err
		}
		if err := a.cfg.EnsureDataDir(); err != nil {
			return err
		}
		path := filepath.Join(a.cfg.ReportDir(), narrative.ReportFilename(now))
		if err := os.WriteFile(path, []byte(report), 0o600); err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}
	cmd.Flags().BoolVar(&save, "save", false, "write the report to the reports directory and print its path")
	return cmd
}

func (a *app) extractCommand() *cobra.Command {
	var interpret bool

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract PFT values from a report image, PDF or text file (- reads text from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}

			var generator gemini.Generator
			client, err := gemini.NewClient(cmd.Context(), a.cfg.GeminiConfig(), a.logger)
			switch {
			case errors.Is(err, domain.ErrNoAPIKey):
			case err != nil:
				return err
			default:
				defer client.Close()
				generator = client
			}

			chain := extraction.NewDefaultChain(generator, domain.ExtractionConfig{
				Models:             a.cfg.ExtractionModels,
				EnableTextPatterns: true,
			}, a.logger)
			outcome, err := chain.Extract(cmd.Context(), doc)
			if err != nil {
				return fmt.Errorf("extracting %s: %w", doc.Name, err)
			}
			m := service.NewMeasurementParser(a.logger).FromValues(outcome.Values)

			if interpret {
				return a.printInterpretation(cmd.OutOrStdout(), service.NewInterpreter(a.logger).Interpret(m))
			}
			if a.output == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"strategy": outcome.Strategy,
					"values":   m.Values(),
					"attempts": outcome.Attempts,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Extracted with %s\n", outcome.Strategy)
			values := m.Values()
			for _, p := range domain.AllParameters() {
				if v, ok := values[p]; ok {
					fmt.Fprintf(out, "  %-14s %s\n", p.Label(), narrative.FormatValue(v))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&interpret, "interpret", false, "interpret the extracted values")
	return cmd
}

func readDocument(cmd *cobra.Command, path string) (domain.Document, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return domain.Document{}, err
		}
		return domain.Document{Name: "stdin", MIMEType: domain.MIMEText, Data: data}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	return extraction.DetectDocument(filepath.Base(path), "", data)
}

func (a *app) printInterpretation(out io.Writer, result *domain.InterpretationResult) error {
	style, err := narrative.ParseStyle(a.style)
	if err != nil {
		return err
	}
	sections := narrative.NewRenderer(style).Render(result)

	if a.output == "json" {
		return writeJSON(out, map[string]any{
			"interpretation": result,
			"rendered":       sections,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pattern: %s\n", result.Pattern)
	for _, section := range []struct {
		title string
		lines []string
	}{
		{"Spirometry", sections.Spirometry},
		{"Lung volumes", sections.LungVolumes},
		{"Diffusion", sections.Diffusion},
		{"Impression", sections.Impression},
	} {
		fmt.Fprintf(&b, "\n%s\n", section.title)
		for _, line := range section.lines {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	_, err = io.WriteString(out, b.String())
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
