package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuro-risk-client/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewManager_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := m.GetConfig()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Prediction.Timeout)
	assert.Equal(t, DefaultAlzheimerEndpoint, cfg.Prediction.Endpoints.Alzheimer)
	assert.Equal(t, DefaultParkinsonEndpoint, cfg.Prediction.Endpoints.Parkinson)
	assert.Empty(t, cfg.Prediction.Endpoints.Epilepsy)
	assert.Equal(t, uint32(5), cfg.Prediction.Breaker.MaxRequests)
	assert.Equal(t, 60*time.Second, cfg.Prediction.Breaker.Timeout)
	assert.InDelta(t, 0.6, cfg.Prediction.Breaker.FailureRatio, 1e-9)
	assert.True(t, cfg.Heuristic.Enabled)
	assert.Equal(t, "canonical", cfg.Heuristic.ParkinsonWeights)
	assert.Equal(t, "memory", cfg.History.Backend)
	assert.Equal(t, 500, cfg.History.MaxEntries)
	assert.Equal(t, "neuro-risk:", cfg.Cache.KeyPrefix)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
}

func TestNewManager_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9090
prediction:
  timeout: 4s
  endpoints:
    parkinson: https://parkinson.example.org/api/parkinson-prediction
    epilepsy: http://localhost:5002/api/epilepsy-prediction
history:
  backend: sqlite
  sqlite_path: /var/lib/neuro-risk/history.db
heuristic:
  parkinson_weights: legacy
`)

	m, err := NewManager(WithConfigFile(path))
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := m.GetConfig()
	assert.Equal(t, 9090, m.GetServerConfig().Port)
	assert.Equal(t, 4*time.Second, m.GetPredictionConfig().Timeout)
	assert.Equal(t, "https://parkinson.example.org/api/parkinson-prediction", cfg.Prediction.Endpoints.Parkinson)
	assert.Equal(t, DefaultAlzheimerEndpoint, cfg.Prediction.Endpoints.Alzheimer)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, "legacy", cfg.Heuristic.ParkinsonWeights)
	assert.True(t, m.IsProduction())
}

func TestNewManager_MissingExplicitFile(t *testing.T) {
	_, err := NewManager(WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, err)
}

func TestNewManager_EnvironmentOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NEURO_RISK_PREDICTION_ENDPOINTS_PARKINSON", "http://parkinson.local/api/parkinson-prediction")
	t.Setenv("NEURO_RISK_HISTORY_BACKEND", "redis")
	t.Setenv("NEURO_RISK_LOGGING_LEVEL", "debug")

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "http://parkinson.local/api/parkinson-prediction", cfg.Prediction.Endpoints.Parkinson)
	assert.Equal(t, "redis", cfg.History.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "redis://localhost:6379", m.GetRedisConnectionString())
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown history backend",
			content: "history:\n  backend: mongo\n",
			wantErr: "invalid configuration",
		},
		{
			name:    "malformed endpoint",
			content: "prediction:\n  endpoints:\n    parkinson: not a url\n",
			wantErr: "invalid configuration",
		},
		{
			name:    "unknown weight profile",
			content: "heuristic:\n  parkinson_weights: experimental\n",
			wantErr: "invalid configuration",
		},
		{
			name:    "postgres without host",
			content: "history:\n  backend: postgres\ndatabase:\n  host: \"\"\n",
			wantErr: "database host is required",
		},
		{
			name:    "redis without url",
			content: "history:\n  backend: redis\ncache:\n  redis_url: \"\"\n",
			wantErr: "Redis URL is required",
		},
		{
			name: "no endpoints and no heuristic",
			content: `
heuristic:
  enabled: false
prediction:
  endpoints:
    alzheimer: ""
    parkinson: ""
`,
			wantErr: "at least one prediction endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(WithConfigFile(writeConfig(t, tt.content)))
			require.NoError(t, err)

			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManager_Reload(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	m, err := NewManager(WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, 9000, m.GetServerConfig().Port)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9001\n"), 0644))
	require.NoError(t, m.Reload())
	assert.Equal(t, 9001, m.GetServerConfig().Port)
}

func TestManager_DatabaseStrings(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.internal
  port: 5433
  database: risk
  username: svc
  password: pw
  ssl_mode: require
`)
	m, err := NewManager(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, "host=db.internal port=5433 user=svc password=pw dbname=risk sslmode=require",
		m.GetDatabaseConnectionString())
	assert.Equal(t, "postgres://svc:pw@db.internal:5433/risk?sslmode=require", m.GetDatabaseURL())
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(domain.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, "debug", logger.GetLevel().String())
	assert.Equal(t, os.Stderr, logger.Out)

	path := filepath.Join(t.TempDir(), "logs", "risk.log")
	logger, err = NewLogger(domain.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	logger.Info("hello")
	assert.FileExists(t, path)

	_, err = NewLogger(domain.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
