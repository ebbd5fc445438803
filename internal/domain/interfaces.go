package domain

import (
	"context"
)

// InterpretationEngine maps a measurement to a structured interpretation.
type InterpretationEngine interface {
	Interpret(m Measurement) *InterpretationResult
}

// DocumentExtractor produces a partial measurement from an uploaded document.
type DocumentExtractor interface {
	Extract(ctx context.Context, doc Document) (*ExtractionOutcome, error)
}

// OpinionProvider produces an alternate free-text opinion for an already
// computed interpretation.
type OpinionProvider interface {
	Opinion(ctx context.Context, m Measurement, result *InterpretationResult) (string, error)
}

// SessionStore keeps in-progress sessions for the duration of their TTL.
type SessionStore interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetSessionConfig() *SessionConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
