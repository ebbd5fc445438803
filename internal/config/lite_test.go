package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "plain", cfg.ReportStyle)
	assert.Equal(t, 45*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, []string{"gemini-1.5-flash", "gemini-1.5-flash-latest", "gemini-1.5-pro"}, cfg.ExtractionModels)
	assert.Equal(t, "gemini-1.5-pro", cfg.NarrativeModel)
	assert.Equal(t, 128, cfg.OpinionCacheSize)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.HasGemini())
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 128, cfg.OpinionCacheSize)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PFT_DATA_DIR", "/tmp/test-pft")
	t.Setenv("PFT_REPORT_STYLE", "markdown")
	t.Setenv("PFT_GEMINI_TIMEOUT", "10s")
	t.Setenv("PFT_EXTRACTION_MODELS", "gemini-a, ,gemini-b")
	t.Setenv("PFT_NARRATIVE_MODEL", "gemini-c")
	t.Setenv("PFT_OPINION_CACHE_SIZE", "16")
	t.Setenv("PFT_LOG_LEVEL", "debug")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-pft", cfg.DataDir)
	assert.Equal(t, "markdown", cfg.ReportStyle)
	assert.Equal(t, 10*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, []string{"gemini-a", "gemini-b"}, cfg.ExtractionModels)
	assert.Equal(t, "gemini-c", cfg.NarrativeModel)
	assert.Equal(t, 16, cfg.OpinionCacheSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.True(t, cfg.HasGemini())
	assert.Equal(t, "test-key", cfg.GeminiConfig().APIKey)
	assert.Equal(t, 10*time.Second, cfg.GeminiConfig().Timeout)
}

func TestLoadLiteConfig_IgnoresMalformedValues(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PFT_GEMINI_TIMEOUT", "soon")
	t.Setenv("PFT_OPINION_CACHE_SIZE", "-3")

	cfg := LoadLiteConfig()

	assert.Equal(t, 45*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, 128, cfg.OpinionCacheSize)
}

func TestLoadLiteConfig_PrefixedKeyWins(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PFT_GEMINI_API_KEY", "prefixed")
	t.Setenv("GOOGLE_API_KEY", "google")

	assert.Equal(t, "prefixed", LoadLiteConfig().GeminiAPIKey)
}

func TestLiteConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LiteConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*LiteConfig) {}},
		{name: "markdown style", mutate: func(c *LiteConfig) { c.ReportStyle = "Markdown" }},
		{name: "http transport", mutate: func(c *LiteConfig) { c.Transport = "http" }, wantErr: true},
		{name: "unknown style", mutate: func(c *LiteConfig) { c.ReportStyle = "html" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLiteConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLiteConfig_ReportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.pft-analyzer"}

	assert.Equal(t, "/home/user/.pft-analyzer/reports", cfg.ReportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "pft")}

	err := cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ReportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"PFT_DATA_DIR",
		"PFT_REPORT_STYLE",
		"PFT_GEMINI_API_KEY",
		"PFT_GEMINI_TIMEOUT",
		"PFT_EXTRACTION_MODELS",
		"PFT_NARRATIVE_MODEL",
		"PFT_OPINION_CACHE_SIZE",
		"PFT_TRANSPORT",
		"PFT_LOG_LEVEL",
		"PFT_LOG_FORMAT",
		"GEMINI_API_KEY",
		"GOOGLE_API_KEY",
	}
	for _, v := range vars {
		t.Setenv(v, "")
	}
}
