package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/gemini"
	"github.com/pft-analyzer-server/internal/resilience"
)

const opinionPrompt = `You are an expert pulmonologist.
Analyze the following Pulmonary Function Test (PFT) data and provide a structured clinical interpretation.

DATA:
%s

RULE-BASED PATTERN: %s

GUIDELINES:
1. Spirometry: evaluate for obstruction (FEV1/FVC < 70%% or LLN), restriction (FVC < 80%%) or mixed patterns. Grade severity based on FEV1 %% predicted.
2. Lung volumes: confirm restriction if TLC < 80%%. Check for hyperinflation or air trapping if TLC/RV are high.
3. Diffusion: evaluate DLCO (normal > 80%% predicted).

OUTPUT FORMAT (Markdown):
### 1. Technical Quality & Pattern
[Concise summary of the pattern]

### 2. Detailed Interpretation
*   **Airflow:** [Analysis]
*   **Volumes:** [Analysis]
*   **Gas Exchange:** [Analysis]

### 3. Impression & Severity
[Final diagnosis suggestion, e.g. "Moderate Obstructive Ventilatory Defect"]

### 4. Differential Diagnosis & Recommendations
[List potential causes and next steps]`

// GeminiOpinion asks a Gemini model for a pulmonologist style narrative.
type GeminiOpinion struct {
	generator gemini.Generator
	model     string
	breaker   *gobreaker.CircuitBreaker
	logger    *logrus.Logger
}

// NewGeminiOpinion creates an opinion provider bound to one model.
func NewGeminiOpinion(generator gemini.Generator, model string, cfg domain.BreakerConfig, logger *logrus.Logger) *GeminiOpinion {
	return &GeminiOpinion{
		generator: generator,
		model:     model,
		breaker:   resilience.NewBreaker("narrative:"+model, cfg, logger),
		logger:    logger,
	}
}

// Opinion implements domain.OpinionProvider
func (g *GeminiOpinion) Opinion(ctx context.Context, m domain.Measurement, result *domain.InterpretationResult) (string, error) {
	prompt, err := BuildOpinionPrompt(m, result)
	if err != nil {
		return "", err
	}

	reply, err := g.breaker.Execute(func() (interface{}, error) {
		return g.generator.Generate(ctx, gemini.Request{
			Model: g.model,
			Parts: []genai.Part{genai.Text(prompt)},
		})
	})
	if err != nil {
		g.logger.WithError(err).WithField("model", g.model).Warn("Narrative opinion failed")
		return "", fmt.Errorf("narrative opinion: %w", err)
	}

	return strings.TrimSpace(reply.(string)), nil
}

// BuildOpinionPrompt renders the opinion prompt with the present values.
func BuildOpinionPrompt(m domain.Measurement, result *domain.InterpretationResult) (string, error) {
	data := make(map[string]float64)
	for p, v := range m.Values() {
		data[string(p)] = v
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding opinion data: %w", err)
	}

	pattern := domain.PatternNormal
	if result != nil {
		pattern = result.Pattern
	}
	return fmt.Sprintf(opinionPrompt, encoded, pattern), nil
}

// NewOpinionProvider returns the cached Gemini opinion provider described by
// cfg, or nil when the narrative is disabled or no generator is available.
func NewOpinionProvider(generator gemini.Generator, cfg domain.NarrativeConfig, logger *logrus.Logger) (domain.OpinionProvider, error) {
	if generator == nil || !cfg.Enabled {
		return nil, nil
	}
	cached, err := NewCachedOpinion(NewGeminiOpinion(generator, cfg.Model, cfg.CircuitBreaker, logger), cfg.CacheSize, logger)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// CachedOpinion memoizes another provider by measurement fingerprint, so
// asking again for an unchanged session does not call the model.
type CachedOpinion struct {
	next   domain.OpinionProvider
	cache  *lru.ARCCache
	logger *logrus.Logger
}

// NewCachedOpinion wraps next with an ARC cache holding size opinions.
func NewCachedOpinion(next domain.OpinionProvider, size int, logger *logrus.Logger) (*CachedOpinion, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("creating opinion cache: %w", err)
	}
	return &CachedOpinion{next: next, cache: cache, logger: logger}, nil
}

// Opinion implements domain.OpinionProvider
func (c *CachedOpinion) Opinion(ctx context.Context, m domain.Measurement, result *domain.InterpretationResult) (string, error) {
	key := m.Fingerprint()
	if cached, ok := c.cache.Get(key); ok {
		c.logger.WithField("fingerprint", key[:12]).Debug("Opinion cache hit")
		return cached.(string), nil
	}

	text, err := c.next.Opinion(ctx, m, result)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, text)
	return text, nil
}

// Len returns the number of cached opinions.
func (c *CachedOpinion) Len() int {
	return c.cache.Len()
}
