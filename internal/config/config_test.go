package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pft-analyzer-server/internal/domain"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewManagerWithFile_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	path := writeConfigFile(t, "environment: development\n")

	m, err := NewManagerWithFile(path)
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "pft:session:", cfg.Session.KeyPrefix)
	assert.Equal(t, []string{"gemini-1.5-flash", "gemini-1.5-flash-latest", "gemini-1.5-pro"}, cfg.Extraction.Models)
	assert.True(t, cfg.Extraction.EnableTextPatterns)
	assert.Equal(t, uint32(3), cfg.Extraction.CircuitBreaker.MinRequests)
	assert.Equal(t, "gemini-1.5-pro", cfg.Narrative.Model)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.Same(t, &cfg.Server, m.GetServerConfig())
	assert.Same(t, &cfg.Session, m.GetSessionConfig())
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManagerWithFile_FileValues(t *testing.T) {
	path := writeConfigFile(t, `
environment: production
server:
  port: 9090
session:
  backend: redis
  redis_url: redis://cache:6379/1
  ttl: 30m
narrative:
  enabled: false
logging:
  level: debug
  format: text
`)

	m, err := NewManagerWithFile(path)
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, "redis://cache:6379/1", cfg.Session.RedisURL)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.False(t, cfg.Narrative.Enabled)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, m.IsProduction())
	assert.False(t, m.IsDevelopment())
}

func TestNewManagerWithFile_EnvironmentOverrides(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9090\n")
	t.Setenv("PFT_SERVER_PORT", "7070")
	t.Setenv("PFT_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "from-env")

	m, err := NewManagerWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, m.GetConfig().Server.Port)
	assert.Equal(t, "from-env", m.GetConfig().Gemini.APIKey)
}

func TestNewManagerWithFile_MissingFile(t *testing.T) {
	_, err := NewManagerWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestManager_Reload(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9090\n")
	m, err := NewManagerWithFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))
	require.NoError(t, m.Reload())

	assert.Equal(t, 9191, m.GetConfig().Server.Port)
}

func validConfig() *domain.Config {
	return &domain.Config{
		Server:    domain.ServerConfig{Port: 8080, MaxUploadBytes: 1 << 20},
		Session:   domain.SessionConfig{Backend: "memory", TTL: time.Hour},
		Gemini:    domain.GeminiConfig{RateLimit: 1},
		Narrative: domain.NarrativeConfig{Enabled: true, Model: "gemini-1.5-pro"},
		RateLimit: domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 5, Burst: 10},
		Logging:   domain.LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*domain.Config) {}},
		{name: "port zero", mutate: func(c *domain.Config) { c.Server.Port = 0 }, wantErr: "invalid server port"},
		{name: "port too large", mutate: func(c *domain.Config) { c.Server.Port = 70000 }, wantErr: "invalid server port"},
		{name: "upload size", mutate: func(c *domain.Config) { c.Server.MaxUploadBytes = 0 }, wantErr: "max upload size"},
		{name: "unknown backend", mutate: func(c *domain.Config) { c.Session.Backend = "disk" }, wantErr: "invalid session backend"},
		{name: "redis without url", mutate: func(c *domain.Config) { c.Session.Backend = "redis" }, wantErr: "Redis URL is required"},
		{name: "zero ttl", mutate: func(c *domain.Config) { c.Session.TTL = 0 }, wantErr: "session TTL"},
		{name: "negative gemini rate", mutate: func(c *domain.Config) { c.Gemini.RateLimit = -1 }, wantErr: "gemini rate limit"},
		{name: "narrative without model", mutate: func(c *domain.Config) { c.Narrative.Model = "" }, wantErr: "narrative model"},
		{name: "disabled narrative without model", mutate: func(c *domain.Config) {
			c.Narrative.Enabled = false
			c.Narrative.Model = ""
		}},
		{name: "zero inbound rate", mutate: func(c *domain.Config) { c.RateLimit.RequestsPerSecond = 0 }, wantErr: "requests per second"},
		{name: "bad log level", mutate: func(c *domain.Config) { c.Logging.Level = "verbose" }, wantErr: "invalid log level"},
		{name: "upper case log level", mutate: func(c *domain.Config) { c.Logging.Level = "WARN" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
