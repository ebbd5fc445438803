// Package resilience builds circuit breakers for calls to external model APIs.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pft-analyzer-server/internal/domain"
)

// Breaker defaults used when configuration leaves a field unset.
const (
	DefaultMaxRequests  = 1
	DefaultInterval     = 60 * time.Second
	DefaultTimeout      = 30 * time.Second
	DefaultMinRequests  = 3
	DefaultFailureRatio = 0.6
)

// NewBreaker creates a circuit breaker that trips once MinRequests calls
// have been seen and the failure ratio reaches FailureRatio. Cancelled or
// timed out calls and errors matching one of benign never count as failures.
func NewBreaker(name string, cfg domain.BreakerConfig, logger *logrus.Logger, benign ...error) *gobreaker.CircuitBreaker {
	cfg = WithDefaults(cfg)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err, benign)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// WithDefaults fills unset breaker fields.
func WithDefaults(cfg domain.BreakerConfig) domain.BreakerConfig {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = DefaultMinRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = DefaultFailureRatio
	}
	return cfg
}

func countsAsFailure(err error, benign []error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	for _, target := range benign {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

// IsOpen reports whether err was returned because the breaker rejected the call.
func IsOpen(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}
