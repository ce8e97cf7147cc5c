package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/neuro-risk-client/internal/database"
	"github.com/neuro-risk-client/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g.
// NEURO_RISK_PREDICTION_ENDPOINTS_PARKINSON.
const EnvPrefix = "NEURO_RISK"

// Default prediction endpoints, matching the development servers
const (
	DefaultAlzheimerEndpoint = "http://10.0.2.2:5000/api/alzheimer-prediction"
	DefaultParkinsonEndpoint = "http://10.0.2.2:5001/api/parkinson-prediction"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	mu         sync.RWMutex
	v          *viper.Viper
	config     *domain.Config
	configFile string
	validate   *validator.Validate
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConfigFile reads configuration from an explicit file instead of
// searching the default paths
func WithConfigFile(path string) ManagerOption {
	return func(m *Manager) {
		m.configFile = path
	}
}

// NewManager creates a new configuration manager
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{validate: validator.New()}
	for _, opt := range opts {
		opt(m)
	}
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
		v.AddConfigPath("/etc/neuro-risk/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || m.configFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.mu.Lock()
	m.v = v
	m.config = config
	m.mu.Unlock()
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.enable_metrics", true)

	// Prediction defaults
	v.SetDefault("prediction.timeout", "10s")
	v.SetDefault("prediction.rate_limit", 0)
	v.SetDefault("prediction.endpoints.alzheimer", DefaultAlzheimerEndpoint)
	v.SetDefault("prediction.endpoints.parkinson", DefaultParkinsonEndpoint)
	v.SetDefault("prediction.endpoints.epilepsy", "")
	v.SetDefault("prediction.circuit_breaker.enabled", true)
	v.SetDefault("prediction.circuit_breaker.max_requests", 5)
	v.SetDefault("prediction.circuit_breaker.interval", "30s")
	v.SetDefault("prediction.circuit_breaker.timeout", "60s")
	v.SetDefault("prediction.circuit_breaker.failure_ratio", 0.6)
	v.SetDefault("prediction.circuit_breaker.min_requests", 3)

	// Heuristic defaults
	v.SetDefault("heuristic.enabled", true)
	v.SetDefault("heuristic.parkinson_weights", "canonical")

	// History defaults
	v.SetDefault("history.backend", "memory")
	v.SetDefault("history.sqlite_path", "")
	v.SetDefault("history.max_entries", 500)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "neuro_risk")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "file://migrations")

	// Cache defaults
	v.SetDefault("cache.redis_url", "redis://localhost:6379")
	v.SetDefault("cache.default_ttl", "0s")
	v.SetDefault("cache.key_prefix", "neuro-risk:")
	v.SetDefault("cache.pool_size", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// MCP defaults
	v.SetDefault("mcp.server_name", "neuro-risk")
	v.SetDefault("mcp.server_version", "1.0.0")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.GetConfig().Server
}

// GetPredictionConfig returns the prediction gateway configuration
func (m *Manager) GetPredictionConfig() *domain.PredictionConfig {
	return &m.GetConfig().Prediction
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Watch reloads the configuration whenever the config file changes and
// passes the new configuration to onChange. Invalid files are reported
// through onError and the previous configuration stays in effect.
func (m *Manager) Watch(onChange func(*domain.Config), onError func(error)) {
	m.mu.RLock()
	v := m.v
	m.mu.RUnlock()

	v.OnConfigChange(func(e fsnotify.Event) {
		next := &domain.Config{}
		if err := v.Unmarshal(next); err != nil {
			if onError != nil {
				onError(fmt.Errorf("error unmarshaling %s: %w", e.Name, err))
			}
			return
		}
		if err := m.validateConfig(next); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}

		m.mu.Lock()
		m.config = next
		m.mu.Unlock()

		if onChange != nil {
			onChange(next)
		}
	})
	v.WatchConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return m.validateConfig(m.GetConfig())
}

func (m *Manager) validateConfig(config *domain.Config) error {
	if err := m.validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch config.History.Backend {
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	case "redis":
		if config.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required")
		}
	}

	if !config.Heuristic.Enabled && config.Prediction.Endpoints == (domain.EndpointsConfig{}) {
		return fmt.Errorf("at least one prediction endpoint is required when the local heuristic is disabled")
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.GetConfig().Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the database location in URL form, as expected by
// the migration runner
func (m *Manager) GetDatabaseURL() string {
	return database.URL(m.GetConfig().Database)
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.GetConfig().Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.GetConfig().Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.GetConfig().Environment)
	return env == "development" || env == "dev" || env == ""
}
