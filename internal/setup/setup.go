// Package setup registers the neuro-risk MCP server with desktop MCP clients
// and reports whether that registration is still usable.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
)

// ServerName is the key the MCP server is registered under
const ServerName = "neuro-risk"

// BinaryName is the stdio MCP server executable
const BinaryName = "neuro-risk-mcp"

// ClientConfig represents a desktop client's MCP configuration file.
// Unknown top-level keys are preserved on save.
type ClientConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server entry.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for registering the server.
type Options struct {
	ConfigPath string // Client config file; detected per OS when empty
	BinaryPath string // Path to the MCP server binary; searched for when empty
	DataDir    string
	Env        map[string]string // Extra NEURO_RISK_* settings, e.g. endpoint URLs
}

// DefaultClientConfigPath returns the desktop client's config file for this OS.
func DefaultClientConfigPath() (string, error) {
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
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClientConfig loads a client configuration. A missing file yields an
// empty configuration.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	config := &ClientConfig{MCPServers: make(map[string]MCPServerConfig)}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if servers, ok := raw["mcpServers"]; ok {
		if err := json.Unmarshal(servers, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(raw, "mcpServers")
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]MCPServerConfig)
	}
	config.extra = raw

	return config, nil
}

// SaveClientConfig writes the configuration, creating its directory.
func SaveClientConfig(configPath string, config *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]interface{}, len(config.extra)+1)
	for k, v := range config.extra {
		out[k] = v
	}
	out["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the neuro-risk entry in the client config and
// returns the config file written.
func Register(opts Options) (string, error) {
	configPath, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	config, err := LoadClientConfig(configPath)
	if err != nil {
		return "", err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		binaryPath, err = findBinary()
		if err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{Command: binaryPath, Env: make(map[string]string)}
	for k, v := range opts.Env {
		entry.Env[k] = v
	}
	if opts.DataDir != "" {
		entry.Env["NEURO_RISK_DATA_DIR"] = opts.DataDir
	}
	if len(entry.Env) == 0 {
		entry.Env = nil
	}

	config.MCPServers[ServerName] = entry
	if err := SaveClientConfig(configPath, config); err != nil {
		return "", err
	}
	return configPath, nil
}

// Unregister removes the neuro-risk entry. It reports whether one existed.
func Unregister(configPath string) (bool, error) {
	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return false, err
	}

	config, err := LoadClientConfig(configPath)
	if err != nil {
		return false, err
	}
	if _, ok := config.MCPServers[ServerName]; !ok {
		return false, nil
	}

	delete(config.MCPServers, ServerName)
	return true, SaveClientConfig(configPath, config)
}

// Status describes the current registration.
type Status struct {
	ConfigPath string   `json:"configPath"`
	Registered bool     `json:"registered"`
	BinaryPath string   `json:"binaryPath,omitempty"`
	DataDir    string   `json:"dataDir"`
	EnvKeys    []string `json:"envKeys,omitempty"`
	Issues     []string `json:"issues,omitempty"`
}

// OK reports whether the registration is usable
func (s *Status) OK() bool {
	return s.Registered && len(s.Issues) == 0
}

// GetStatus inspects the client config and the registered binary.
func GetStatus(configPath string) (*Status, error) {
	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	status := &Status{ConfigPath: configPath}
	config, err := LoadClientConfig(configPath)
	if err != nil {
		return nil, err
	}

	entry, ok := config.MCPServers[ServerName]
	if ok {
		status.Registered = true
		status.BinaryPath = entry.Command

		info, err := os.Stat(entry.Command)
		switch {
		case err != nil:
			status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
		case runtime.GOOS != "windows" && info.Mode()&0111 == 0:
			status.Issues = append(status.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
		}

		for k := range entry.Env {
			status.EnvKeys = append(status.EnvKeys, k)
		}
		sort.Strings(status.EnvKeys)
		status.DataDir = entry.Env["NEURO_RISK_DATA_DIR"]
	} else {
		status.Issues = append(status.Issues, fmt.Sprintf("%s is not registered", ServerName))
	}

	if status.DataDir == "" {
		status.DataDir = DefaultDataDir()
	}
	return status, nil
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".neuro-risk")
}

func resolveConfigPath(configPath string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return DefaultClientConfigPath()
}

// findBinary looks on PATH, next to the running executable and in the usual
// install locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	var locations []string
	if exe, err := os.Executable(); err == nil {
		locations = append(locations, filepath.Join(filepath.Dir(exe), BinaryName))
	}
	locations = append(locations,
		filepath.Join("build", BinaryName),
		filepath.Join(os.Getenv("HOME"), ".local", "bin", BinaryName),
		filepath.Join("/usr/local/bin", BinaryName),
	)

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary %q not found in common locations", BinaryName)
}
