// Package config provides configuration management for the risk client.
// This file contains the lightweight configuration for the standalone MCP
// binary, which needs no config file and no external databases.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/neuro-risk-client/internal/domain"
)

// LiteConfig is a simplified configuration read from the environment only.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the history database and exports

	// Prediction endpoints; empty disables remote scoring for that condition
	AlzheimerURL string
	ParkinsonURL string
	EpilepsyURL  string
	Timeout      time.Duration

	// History
	HistoryBackend string // sqlite, memory or none
	HistoryMax     int    // Maximum records kept by the memory backend

	// Heuristic
	ParkinsonWeights string // canonical or legacy

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".neuro-risk")

	return &LiteConfig{
		DataDir:          dataDir,
		AlzheimerURL:     DefaultAlzheimerEndpoint,
		ParkinsonURL:     DefaultParkinsonEndpoint,
		Timeout:          10 * time.Second,
		HistoryBackend:   "sqlite",
		HistoryMax:       500,
		ParkinsonWeights: "canonical",
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("NEURO_RISK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// An explicitly empty endpoint variable disables that condition
	if v, ok := os.LookupEnv("NEURO_RISK_ALZHEIMER_URL"); ok {
		cfg.AlzheimerURL = v
	}
	if v, ok := os.LookupEnv("NEURO_RISK_PARKINSON_URL"); ok {
		cfg.ParkinsonURL = v
	}
	if v, ok := os.LookupEnv("NEURO_RISK_EPILEPSY_URL"); ok {
		cfg.EpilepsyURL = v
	}
	if v := os.Getenv("NEURO_RISK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if v := os.Getenv("NEURO_RISK_HISTORY"); v != "" {
		cfg.HistoryBackend = v
	}
	if v := os.Getenv("NEURO_RISK_HISTORY_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryMax = n
		}
	}

	if v := os.Getenv("NEURO_RISK_PARKINSON_WEIGHTS"); v != "" {
		cfg.ParkinsonWeights = v
	}

	if v := os.Getenv("NEURO_RISK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("NEURO_RISK_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// HistoryDBPath returns the path to the history SQLite database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// ExportDir returns the directory for history exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// ToConfig expands the lite settings into a full configuration so the same
// wiring code serves both binaries.
func (c *LiteConfig) ToConfig() *domain.Config {
	return &domain.Config{
		Environment: "development",
		Server: domain.ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Prediction: domain.PredictionConfig{
			Timeout: c.Timeout,
			Endpoints: domain.EndpointsConfig{
				Alzheimer: c.AlzheimerURL,
				Parkinson: c.ParkinsonURL,
				Epilepsy:  c.EpilepsyURL,
			},
			Breaker: domain.CircuitBreakerConfig{
				Enabled:      true,
				MaxRequests:  5,
				Interval:     30 * time.Second,
				Timeout:      60 * time.Second,
				FailureRatio: 0.6,
				MinRequests:  3,
			},
		},
		Heuristic: domain.HeuristicConfig{
			Enabled:          true,
			ParkinsonWeights: c.ParkinsonWeights,
		},
		History: domain.HistoryConfig{
			Backend:    c.HistoryBackend,
			SQLitePath: c.HistoryDBPath(),
			MaxEntries: c.HistoryMax,
		},
		Logging: domain.LoggingConfig{
			Level:  c.LogLevel,
			Format: c.LogFormat,
			Output: "stderr",
		},
		MCP: domain.MCPConfig{
			ServerName:    "neuro-risk-lite",
			ServerVersion: "1.0.0",
		},
	}
}
