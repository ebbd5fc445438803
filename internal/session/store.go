package session

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pft-analyzer-server/internal/domain"
)

// Session store defaults
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	DefaultTTL         = 2 * time.Hour
	DefaultMaxSessions = 1000
	DefaultKeyPrefix   = "pft:session:"
)

// NewStore builds the store selected by cfg.Backend.
func NewStore(ctx context.Context, cfg domain.SessionConfig, logger *logrus.Logger) (domain.SessionStore, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		logger.WithFields(logrus.Fields{
			"backend":      BackendMemory,
			"ttl":          cfg.TTL.String(),
			"max_sessions": cfg.MaxSessions,
		}).Info("Using in-memory session store")
		return NewMemoryStore(cfg.MaxSessions, cfg.TTL, logger), nil
	case BackendRedis:
		store, err := NewRedisStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"backend": BackendRedis,
			"ttl":     cfg.TTL.String(),
		}).Info("Using Redis session store")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
