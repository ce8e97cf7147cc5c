package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Prediction  PredictionConfig `mapstructure:"prediction"`
	Heuristic   HeuristicConfig  `mapstructure:"heuristic"`
	History     HistoryConfig    `mapstructure:"history"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	MCP         MCPConfig        `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host" validate:"required"`
	Port           int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	EnableMetrics  bool          `mapstructure:"enable_metrics"`
}

// PredictionConfig configures the remote prediction gateway
type PredictionConfig struct {
	Timeout   time.Duration        `mapstructure:"timeout" validate:"gt=0"`
	RateLimit int                  `mapstructure:"rate_limit" validate:"gte=0"`
	Endpoints EndpointsConfig      `mapstructure:"endpoints"`
	Breaker   CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// EndpointsConfig holds one prediction URL per condition. An empty URL means
// the condition is scored locally only.
type EndpointsConfig struct {
	Alzheimer string `mapstructure:"alzheimer" validate:"omitempty,url"`
	Parkinson string `mapstructure:"parkinson" validate:"omitempty,url"`
	Epilepsy  string `mapstructure:"epilepsy" validate:"omitempty,url"`
}

// URL returns the endpoint configured for the given condition
func (e EndpointsConfig) URL(kind ConditionKind) string {
	switch kind {
	case ConditionAlzheimer:
		return e.Alzheimer
	case ConditionParkinson:
		return e.Parkinson
	case ConditionEpilepsy:
		return e.Epilepsy
	default:
		return ""
	}
}

// CircuitBreakerConfig configures the per-condition circuit breakers
type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio" validate:"gte=0,lte=1"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

// HeuristicConfig selects the local fallback behaviour
type HeuristicConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// ParkinsonWeights is "canonical" or "legacy".
	ParkinsonWeights string `mapstructure:"parkinson_weights" validate:"oneof=canonical legacy"`
}

// HistoryConfig selects the assessment history backend
type HistoryConfig struct {
	Backend    string `mapstructure:"backend" validate:"oneof=none memory sqlite postgres redis"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MaxEntries int    `mapstructure:"max_entries" validate:"gte=0"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents Redis configuration
type CacheConfig struct {
	RedisURL   string        `mapstructure:"redis_url"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	PoolSize   int           `mapstructure:"pool_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
	Output string `mapstructure:"output"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
