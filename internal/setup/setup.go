// Package setup registers the PFT MCP server with Claude Desktop.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerKey is the entry name used in the Claude Desktop configuration.
const ServerKey = "pft-analyzer"

// BinaryName is the MCP server executable looked up when no path is given.
const BinaryName = "pft-mcp-server"

// ClaudeDesktopConfig represents the Claude Desktop configuration file structure.
// Keys other than mcpServers are preserved on save.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls what Configure writes.
type Options struct {
	BinaryPath   string
	DataDir      string
	ReportStyle  string
	GeminiAPIKey string
}

// Status describes the current Claude Desktop integration.
type Status struct {
	ConfigPath string
	Configured bool
	ServerPath string
	DataDir    string
	HasGemini  bool
	Issues     []string
}

// ClaudeDesktopConfigPath returns the path to Claude Desktop's config file.
func ClaudeDesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// Load reads a Claude Desktop configuration. A missing file yields an empty one.
func Load(configPath string) (*ClaudeDesktopConfig, error) {
	cfg := &ClaudeDesktopConfig{
		MCPServers: make(map[string]MCPServerConfig),
		extra:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.extra, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]MCPServerConfig)
	}
	return cfg, nil
}

// Save writes the configuration, creating its directory when needed.
func Save(configPath string, cfg *ClaudeDesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]any, len(cfg.extra)+1)
	for k, v := range cfg.extra {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The entry may carry an API key.
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Configure adds or replaces the PFT server entry in the config at configPath.
func Configure(configPath string, opts Options) (MCPServerConfig, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return MCPServerConfig{}, err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		if binaryPath, err = FindBinary(); err != nil {
			return MCPServerConfig{}, fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{
		Command: binaryPath,
		Env:     make(map[string]string),
	}
	if opts.DataDir != "" {
		entry.Env["PFT_DATA_DIR"] = opts.DataDir
	}
	if opts.ReportStyle != "" {
		entry.Env["PFT_REPORT_STYLE"] = opts.ReportStyle
	}
	if opts.GeminiAPIKey != "" {
		entry.Env["PFT_GEMINI_API_KEY"] = opts.GeminiAPIKey
	}

	cfg.MCPServers[ServerKey] = entry
	if err := Save(configPath, cfg); err != nil {
		return MCPServerConfig{}, err
	}
	return entry, nil
}

// Remove deletes the PFT server entry. It reports whether an entry existed.
func Remove(configPath string) (bool, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return false, err
	}
	if _, ok := cfg.MCPServers[ServerKey]; !ok {
		return false, nil
	}
	delete(cfg.MCPServers, ServerKey)
	return true, Save(configPath, cfg)
}

// GetStatus inspects the config at configPath. defaultDataDir is reported
// when the entry does not override the data directory.
func GetStatus(configPath, defaultDataDir string) (*Status, error) {
	status := &Status{ConfigPath: configPath, DataDir: defaultDataDir}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	entry, ok := cfg.MCPServers[ServerKey]
	if !ok {
		status.Issues = append(status.Issues, "PFT analyzer is not configured in Claude Desktop")
		return status, nil
	}

	status.Configured = true
	status.ServerPath = entry.Command
	if dir := entry.Env["PFT_DATA_DIR"]; dir != "" {
		status.DataDir = dir
	}
	status.HasGemini = entry.Env["PFT_GEMINI_API_KEY"] != ""

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found: %s", entry.Command))
	case runtime.GOOS != "windows" && info.Mode()&0o111 == 0:
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary is not executable: %s", entry.Command))
	}

	return status, nil
}

// FindBinary looks for the server binary on PATH and in common locations.
func FindBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	locations := []string{
		filepath.Join(".", BinaryName),
		filepath.Join(".", "build", BinaryName),
		"/usr/local/bin/" + BinaryName,
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".local", "bin", BinaryName))
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", BinaryName)
}
