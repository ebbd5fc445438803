package extraction

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/gemini"
	"github.com/pft-analyzer-server/internal/resilience"
)

type strategy struct {
	extractor Extractor
	breaker   *gobreaker.CircuitBreaker
}

// Chain tries its strategies in order and returns the first success. Every
// try, skip and failure is recorded on the outcome.
type Chain struct {
	strategies []strategy
	logger     *logrus.Logger
}

// NewChain creates a chain with one circuit breaker per strategy. A document
// with nothing to extract does not count against a strategy's breaker.
func NewChain(cfg domain.BreakerConfig, logger *logrus.Logger, extractors ...Extractor) *Chain {
	c := &Chain{logger: logger}
	for _, e := range extractors {
		c.strategies = append(c.strategies, strategy{
			extractor: e,
			breaker:   resilience.NewBreaker("extraction:"+e.Name(), cfg, logger, ErrNoValuesFound),
		})
	}
	return c
}

// NewDefaultChain builds the configured strategy order: one Gemini extractor
// per model when generator is non-nil, then text patterns when enabled.
func NewDefaultChain(generator gemini.Generator, cfg domain.ExtractionConfig, logger *logrus.Logger) *Chain {
	var extractors []Extractor
	if generator != nil {
		for _, model := range cfg.Models {
			extractors = append(extractors, NewGeminiExtractor(generator, model))
		}
	}
	if cfg.EnableTextPatterns {
		extractors = append(extractors, NewTextPatternExtractor())
	}
	return NewChain(cfg.CircuitBreaker, logger, extractors...)
}

// Strategies returns the strategy names in the order they are tried.
func (c *Chain) Strategies() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.extractor.Name())
	}
	return names
}

// Extract implements domain.DocumentExtractor. On failure the returned
// outcome still carries the attempts so callers can report them.
func (c *Chain) Extract(ctx context.Context, doc domain.Document) (*domain.ExtractionOutcome, error) {
	outcome := &domain.ExtractionOutcome{}
	supported := false

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return outcome, fmt.Errorf("extraction cancelled: %w", err)
		}

		name := s.extractor.Name()
		if !s.extractor.Supports(doc) {
			outcome.Attempts = append(outcome.Attempts, domain.ExtractionAttempt{Strategy: name, Skipped: true})
			continue
		}
		supported = true

		result, err := s.breaker.Execute(func() (interface{}, error) {
			return s.extractor.Extract(ctx, doc)
		})
		if err != nil {
			outcome.Attempts = append(outcome.Attempts, domain.ExtractionAttempt{Strategy: name, Error: err.Error()})
			c.logger.WithError(err).WithFields(logrus.Fields{
				"strategy":     name,
				"document":     doc.Name,
				"breaker_open": resilience.IsOpen(err),
			}).Warn("Extraction strategy failed, trying next")
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return outcome, fmt.Errorf("extraction cancelled: %w", err)
			}
			continue
		}

		values, _ := result.(map[string]any)
		outcome.Strategy = name
		outcome.Values = values
		outcome.Attempts = append(outcome.Attempts, domain.ExtractionAttempt{Strategy: name, Fields: len(values)})

		c.logger.WithFields(logrus.Fields{
			"strategy": name,
			"document": doc.Name,
			"fields":   len(values),
			"attempts": len(outcome.Attempts),
		}).Info("Extracted PFT values from document")
		return outcome, nil
	}

	if !supported {
		return outcome, fmt.Errorf("%w: no strategy reads %s", domain.ErrUnsupportedDocument, doc.MIMEType)
	}
	return outcome, domain.ErrExtractionExhausted
}
