package domain

import (
	"context"
)

// PredictionGateway issues one remote prediction request per call
type PredictionGateway interface {
	Predict(ctx context.Context, features FeatureSet) (*RawPrediction, error)
}

// HeuristicScorer computes an offline approximation of a condition's risk percentage
type HeuristicScorer interface {
	ScoreLocally(kind ConditionKind, features FeatureSet) (float64, error)
}

// RiskAssessor is the single entry point used by the API, MCP and CLI surfaces
type RiskAssessor interface {
	Assess(ctx context.Context, kind ConditionKind, raw map[string]interface{}) (*RiskAssessmentResult, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetPredictionConfig() *PredictionConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
