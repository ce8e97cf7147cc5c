// Package service composes validation, remote prediction, local fallback and
// normalization into a single risk assessment operation.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/risk"
	"github.com/neuro-risk-client/internal/validation"
)

// AssessmentClient implements domain.RiskAssessor. It holds no mutable state
// and is safe for concurrent use.
type AssessmentClient struct {
	logger     *logrus.Logger
	gateway    domain.PredictionGateway
	scorer     domain.HeuristicScorer
	normalizer *risk.Normalizer
	metrics    *Metrics
}

// Option configures an AssessmentClient
type Option func(*AssessmentClient)

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *AssessmentClient) {
		c.logger = logger
	}
}

// WithScorer enables local fallback through the given scorer. Without a
// scorer every gateway failure is returned to the caller.
func WithScorer(scorer domain.HeuristicScorer) Option {
	return func(c *AssessmentClient) {
		c.scorer = scorer
	}
}

// WithNormalizer replaces the default wall-clock normalizer
func WithNormalizer(n *risk.Normalizer) Option {
	return func(c *AssessmentClient) {
		c.normalizer = n
	}
}

// WithMetrics records assessment outcomes to Prometheus collectors
func WithMetrics(m *Metrics) Option {
	return func(c *AssessmentClient) {
		c.metrics = m
	}
}

// NewAssessmentClient creates a client issuing predictions through gateway
func NewAssessmentClient(gateway domain.PredictionGateway, opts ...Option) *AssessmentClient {
	c := &AssessmentClient{
		gateway:    gateway,
		normalizer: risk.NewNormalizer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.New()
	}
	return c
}

// Assess validates the raw submission and returns a normalized result.
// Validation failures are returned before any network activity.
func (c *AssessmentClient) Assess(ctx context.Context, kind domain.ConditionKind, raw map[string]interface{}) (*domain.RiskAssessmentResult, error) {
	features, err := validation.Parse(kind, raw)
	if err != nil {
		c.metrics.observeValidationFailure(kind)
		c.logger.WithFields(logrus.Fields{
			"condition": kind,
			"error":     err.Error(),
		}).Debug("Rejected invalid submission")
		return nil, err
	}
	return c.AssessFeatures(ctx, features)
}

// AssessFeatures runs an already validated feature set. The gateway is
// attempted once; only a gateway failure triggers the local heuristic, and
// a cancelled context is returned as-is without falling back.
func (c *AssessmentClient) AssessFeatures(ctx context.Context, features domain.FeatureSet) (*domain.RiskAssessmentResult, error) {
	if features == nil {
		return nil, fmt.Errorf("assessing: features are required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kind := features.Condition()
	start := time.Now()
	logger := c.logger.WithField("condition", kind)

	prediction, err := c.gateway.Predict(ctx, features)
	if err == nil {
		src := risk.Source{
			Confidence: prediction.Confidence,
			ModelUsed:  prediction.ModelUsed,
		}
		if level, ok := risk.ParseLevel(string(prediction.RiskLevel)); ok {
			src.Level = level
			src.Color = prediction.RiskColor
		}
		result := c.normalizer.Normalize(prediction.RiskPercentage, src)
		c.metrics.observeResult(kind, &result, time.Since(start))
		logger.WithFields(logrus.Fields{
			"risk_percentage": result.RiskPercentage,
			"risk_level":      result.RiskLevel,
			"duration_ms":     time.Since(start).Milliseconds(),
		}).Info("Remote assessment completed")
		return &result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	gwErr, ok := domain.IsGatewayError(err)
	if !ok {
		return nil, fmt.Errorf("assessing %s: %w", kind, err)
	}
	c.metrics.observeGatewayFailure(kind, gwErr)

	if c.scorer == nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"kind":  gwErr.Kind,
		"error": gwErr.Error(),
	}).Warn("Remote prediction failed, using local heuristic")

	pct, herr := c.scorer.ScoreLocally(kind, features)
	if herr != nil {
		var unavailable *domain.HeuristicUnavailableError
		if errors.As(herr, &unavailable) {
			return nil, &domain.HeuristicUnavailableError{Condition: kind, Cause: err}
		}
		return nil, fmt.Errorf("local scoring after gateway failure: %w", herr)
	}

	result := c.normalizer.Normalize(pct, risk.Source{Fallback: true})
	c.metrics.observeResult(kind, &result, time.Since(start))
	logger.WithFields(logrus.Fields{
		"risk_percentage": result.RiskPercentage,
		"risk_level":      result.RiskLevel,
	}).Info("Fallback assessment completed")
	return &result, nil
}

// ScoreLocally validates the submission and scores it with the heuristic
// only, without contacting the gateway.
func (c *AssessmentClient) ScoreLocally(kind domain.ConditionKind, raw map[string]interface{}) (*domain.RiskAssessmentResult, error) {
	if c.scorer == nil {
		return nil, &domain.HeuristicUnavailableError{Condition: kind}
	}

	features, err := validation.Parse(kind, raw)
	if err != nil {
		c.metrics.observeValidationFailure(kind)
		return nil, err
	}

	start := time.Now()
	pct, err := c.scorer.ScoreLocally(kind, features)
	if err != nil {
		return nil, err
	}

	result := c.normalizer.Normalize(pct, risk.Source{Fallback: true})
	c.metrics.observeResult(kind, &result, time.Since(start))
	return &result, nil
}
