package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Session     SessionConfig    `mapstructure:"session"`
	Gemini      GeminiConfig     `mapstructure:"gemini"`
	Extraction  ExtractionConfig `mapstructure:"extraction"`
	Narrative   NarrativeConfig  `mapstructure:"narrative"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// SessionConfig represents session store configuration
type SessionConfig struct {
	Backend     string        `mapstructure:"backend"` // "memory", "redis"
	TTL         time.Duration `mapstructure:"ttl"`
	MaxSessions int           `mapstructure:"max_sessions"`
	RedisURL    string        `mapstructure:"redis_url"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	PoolSize    int           `mapstructure:"pool_size"`
}

// GeminiConfig represents Google Gemini API configuration
type GeminiConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second
	Burst     int           `mapstructure:"burst"`
}

// ExtractionConfig represents document extraction configuration
type ExtractionConfig struct {
	Models             []string      `mapstructure:"models"` // tried in order
	EnableTextPatterns bool          `mapstructure:"enable_text_patterns"`
	CircuitBreaker     BreakerConfig `mapstructure:"circuit_breaker"`
}

// NarrativeConfig represents AI narrative opinion configuration
type NarrativeConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Model          string        `mapstructure:"model"`
	CacheSize      int           `mapstructure:"cache_size"`
	CircuitBreaker BreakerConfig `mapstructure:"circuit_breaker"`
}

// BreakerConfig represents circuit breaker settings for a remote collaborator
type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// RateLimitConfig represents inbound request throttling per client
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
