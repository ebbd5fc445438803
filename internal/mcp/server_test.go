package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pft-analyzer-server/internal/config"
	"github.com/pft-analyzer-server/internal/domain"
)

type stubExtractor struct {
	outcome *domain.ExtractionOutcome
	err     error
	docs    []domain.Document
}

func (e *stubExtractor) Extract(ctx context.Context, doc domain.Document) (*domain.ExtractionOutcome, error) {
	e.docs = append(e.docs, doc)
	return e.outcome, e.err
}

type stubOpinion struct {
	text  string
	err   error
	calls int
}

func (o *stubOpinion) Opinion(ctx context.Context, m domain.Measurement, result *domain.InterpretationResult) (string, error) {
	o.calls++
	return o.text, o.err
}

func testLiteConfig(t *testing.T) *config.LiteConfig {
	t.Helper()
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()
	cfg.GeminiAPIKey = ""
	cfg.LogLevel = "error"
	return cfg
}

func testLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	opts = append([]ServerOption{WithLogger(testLogger())}, opts...)
	server, err := NewServer(testLiteConfig(t), opts...)
	require.NoError(t, err)
	server.now = func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC) }
	return server
}

func TestNewServer(t *testing.T) {
	server := newTestServer(t)

	assert.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.extractor, "text extraction works without an API key")
	assert.Nil(t, server.opinion, "no opinion provider without an API key")
	assert.Nil(t, server.client)
	assert.Equal(t, []string{ToolInterpret, ToolSeverity, ToolReport, ToolExtract}, server.Tools())
	assert.NoError(t, server.Close())
}

func TestNewServer_WithOpinion(t *testing.T) {
	server := newTestServer(t, WithOpinion(&stubOpinion{text: "ok"}))

	assert.Contains(t, server.Tools(), ToolOpinion)
}

func TestNewServer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.LiteConfig)
	}{
		{
			name:   "unsupported transport",
			modify: func(c *config.LiteConfig) { c.Transport = "http" },
		},
		{
			name:   "unknown report style",
			modify: func(c *config.LiteConfig) { c.ReportStyle = "html" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testLiteConfig(t)
			tt.modify(cfg)

			server, err := NewServer(cfg, WithLogger(testLogger()))
			assert.Error(t, err)
			assert.Nil(t, server)
		})
	}
}

func TestNewServer_OptionError(t *testing.T) {
	failing := func(*Server) error { return errors.New("boom") }

	_, err := NewServer(testLiteConfig(t), WithLogger(testLogger()), failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestServer_ToolsReturnsCopy(t *testing.T) {
	server := newTestServer(t)

	tools := server.Tools()
	tools[0] = "changed"

	assert.Equal(t, ToolInterpret, server.Tools()[0])
}
