package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pft-analyzer-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return NewManagerWithFile("")
}

// NewManagerWithFile creates a configuration manager that reads an explicit
// config file instead of searching the default paths.
func NewManagerWithFile(path string) (*Manager, error) {
	m := &Manager{configFile: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/pft-analyzer/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix("PFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The API key is commonly provided without the prefix
	if config.Gemini.APIKey == "" {
		_ = v.BindEnv("gemini.api_key", "PFT_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
		config.Gemini.APIKey = v.GetString("gemini.api_key")
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.max_upload_bytes", 10<<20)

	// Session defaults
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.max_sessions", 1000)
	v.SetDefault("session.redis_url", "redis://localhost:6379/0")
	v.SetDefault("session.key_prefix", "pft:session:")
	v.SetDefault("session.pool_size", 10)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.timeout", "45s")
	v.SetDefault("gemini.rate_limit", 1.0)
	v.SetDefault("gemini.burst", 2)

	// Extraction defaults
	v.SetDefault("extraction.models", []string{"gemini-1.5-flash", "gemini-1.5-flash-latest", "gemini-1.5-pro"})
	v.SetDefault("extraction.enable_text_patterns", true)
	v.SetDefault("extraction.circuit_breaker.max_requests", 1)
	v.SetDefault("extraction.circuit_breaker.interval", "60s")
	v.SetDefault("extraction.circuit_breaker.timeout", "30s")
	v.SetDefault("extraction.circuit_breaker.min_requests", 3)
	v.SetDefault("extraction.circuit_breaker.failure_ratio", 0.6)

	// Narrative defaults
	v.SetDefault("narrative.enabled", true)
	v.SetDefault("narrative.model", "gemini-1.5-pro")
	v.SetDefault("narrative.cache_size", 256)
	v.SetDefault("narrative.circuit_breaker.max_requests", 1)
	v.SetDefault("narrative.circuit_breaker.interval", "60s")
	v.SetDefault("narrative.circuit_breaker.timeout", "30s")
	v.SetDefault("narrative.circuit_breaker.min_requests", 3)
	v.SetDefault("narrative.circuit_breaker.failure_ratio", 0.6)

	// Inbound rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetSessionConfig returns session store configuration
func (m *Manager) GetSessionConfig() *domain.SessionConfig {
	return &m.config.Session
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks a configuration for values the server cannot run with.
func Validate(config *domain.Config) error {
	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	// Validate session configuration
	switch config.Session.Backend {
	case "memory":
	case "redis":
		if config.Session.RedisURL == "" {
			return fmt.Errorf("Redis URL is required for the redis session backend")
		}
	default:
		return fmt.Errorf("invalid session backend: %s", config.Session.Backend)
	}
	if config.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	// Validate collaborators
	if config.Gemini.RateLimit < 0 {
		return fmt.Errorf("gemini rate limit cannot be negative")
	}
	if config.Narrative.Enabled && config.Narrative.Model == "" {
		return fmt.Errorf("narrative model is required when narrative is enabled")
	}
	if config.RateLimit.Enabled && config.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit requests per second must be positive")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
