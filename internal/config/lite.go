// Package config provides configuration management for the PFT analyzer.
// This file contains the lightweight configuration for the MCP stdio binary.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pft-analyzer-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It is read from environment variables only and needs no config file.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for saved reports

	// Report settings
	ReportStyle string // Finding text style: plain, markdown

	// Gemini settings
	GeminiAPIKey     string        // Optional: enables extraction and opinion tools
	GeminiTimeout    time.Duration // Per-call timeout
	ExtractionModels []string      // Vision models tried in order
	NarrativeModel   string        // Model used for the narrative opinion
	OpinionCacheSize int           // Maximum cached opinions

	// Transport settings
	Transport string // Transport type: stdio

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".pft-analyzer")

	return &LiteConfig{
		DataDir:          dataDir,
		ReportStyle:      "plain",
		GeminiTimeout:    45 * time.Second,
		ExtractionModels: []string{"gemini-1.5-flash", "gemini-1.5-flash-latest", "gemini-1.5-pro"},
		NarrativeModel:   "gemini-1.5-pro",
		OpinionCacheSize: 128,
		Transport:        "stdio",
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory
	if v := os.Getenv("PFT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Report settings
	if v := os.Getenv("PFT_REPORT_STYLE"); v != "" {
		cfg.ReportStyle = v
	}

	// Gemini settings
	for _, key := range []string{"PFT_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			cfg.GeminiAPIKey = v
			break
		}
	}
	if v := os.Getenv("PFT_GEMINI_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.GeminiTimeout = d
		}
	}
	if v := os.Getenv("PFT_EXTRACTION_MODELS"); v != "" {
		var models []string
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		if len(models) > 0 {
			cfg.ExtractionModels = models
		}
	}
	if v := os.Getenv("PFT_NARRATIVE_MODEL"); v != "" {
		cfg.NarrativeModel = v
	}
	if v := os.Getenv("PFT_OPINION_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OpinionCacheSize = n
		}
	}

	// Transport
	if v := os.Getenv("PFT_TRANSPORT"); v != "" {
		cfg.Transport = v
	}

	// Logging
	if v := os.Getenv("PFT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PFT_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// Validate checks the settings the MCP server cannot start without.
func (c *LiteConfig) Validate() error {
	if c.Transport != "stdio" {
		return fmt.Errorf("unsupported transport: %s", c.Transport)
	}
	switch strings.ToLower(c.ReportStyle) {
	case "plain", "markdown":
	default:
		return fmt.Errorf("invalid report style: %s", c.ReportStyle)
	}
	return nil
}

// HasGemini reports whether a Gemini API key is configured.
func (c *LiteConfig) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// GeminiConfig returns the client settings derived from the lite config.
func (c *LiteConfig) GeminiConfig() domain.GeminiConfig {
	return domain.GeminiConfig{
		APIKey:    c.GeminiAPIKey,
		Timeout:   c.GeminiTimeout,
		RateLimit: 1,
		Burst:     2,
	}
}

// ReportDir returns the directory saved reports are written to.
func (c *LiteConfig) ReportDir() string {
	return filepath.Join(c.DataDir, "reports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ReportDir(), 0755)
}
