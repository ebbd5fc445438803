// Package gemini wraps the Google Generative AI client for the extraction and
// narrative collaborators. Outbound calls are throttled by a shared limiter.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/pft-analyzer-server/internal/domain"
)

// ErrEmptyResponse is returned when the model replies without any text part.
var ErrEmptyResponse = errors.New("gemini: empty response")

// Request is one content generation call.
type Request struct {
	Model  string
	System string
	Parts  []genai.Part
	// JSON asks the model for an application/json reply at temperature 0.
	JSON bool
}

// Generator produces text from a request. Client implements it; tests use fakes.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Client is a rate limited Gemini client.
type Client struct {
	client  *genai.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *logrus.Logger
}

// NewClient creates a client from configuration. An empty API key yields
// domain.ErrNoAPIKey so callers can run without AI features.
func NewClient(ctx context.Context, cfg domain.GeminiConfig, logger *logrus.Logger) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, domain.ErrNoAPIKey
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		client:  cl,
		limiter: rate.NewLimiter(limit, burst),
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Generate sends the request and returns the first text part of the reply.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for gemini rate limiter: %w", err)
	}

	m := c.client.GenerativeModel(strings.TrimSpace(req.Model))
	if req.JSON {
		m.GenerationConfig = genai.GenerationConfig{
			Temperature:      ptrFloat32(0),
			ResponseMIMEType: "application/json",
		}
	}
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	c.logger.WithFields(logrus.Fields{
		"model": req.Model,
		"parts": len(req.Parts),
		"json":  req.JSON,
	}).Debug("Calling Gemini")

	resp, err := m.GenerateContent(ctx, req.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", req.Model, err)
	}

	txt := firstText(resp)
	if txt == "" {
		return "", fmt.Errorf("gemini %s: %w", req.Model, ErrEmptyResponse)
	}
	return txt, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// StripCodeFences removes a surrounding markdown code fence from a reply.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok && strings.TrimSpace(string(txt)) != "" {
				return string(txt)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
