package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/heuristic"
	"github.com/neuro-risk-client/internal/history"
	"github.com/neuro-risk-client/pkg/external"
)

// Stack is the assembled assessment pipeline shared by the HTTP server, the
// MCP server and the CLI.
type Stack struct {
	Client     *AssessmentClient
	Recorder   *Recorder
	Prediction *external.PredictionClient
	Metrics    *Metrics
}

// NewStack wires the prediction client, optional circuit breakers, the local
// heuristic and the history recorder from configuration. store may be nil
// and reg may be nil to skip metrics.
func NewStack(cfg *domain.Config, store history.Store, logger *logrus.Logger, reg prometheus.Registerer) (*Stack, error) {
	if logger == nil {
		logger = logrus.New()
	}

	prediction := external.NewPredictionClient(cfg.Prediction, external.WithClientLogger(logger))

	var gateway domain.PredictionGateway = prediction
	if cfg.Prediction.Breaker.Enabled {
		gateway = external.NewResilientGateway(prediction, cfg.Prediction.Breaker, logger)
	}

	var metrics *Metrics
	if reg != nil {
		metrics = NewMetrics(reg)
	}

	opts := []Option{WithLogger(logger), WithMetrics(metrics)}
	if cfg.Heuristic.Enabled {
		weights, err := heuristic.ParkinsonWeightsFor(cfg.Heuristic.ParkinsonWeights)
		if err != nil {
			return nil, fmt.Errorf("configuring heuristic: %w", err)
		}
		opts = append(opts, WithScorer(heuristic.NewScorer(heuristic.WithParkinsonWeights(weights))))
	}

	client := NewAssessmentClient(gateway, opts...)

	return &Stack{
		Client:     client,
		Recorder:   NewRecorder(client, store, logger, metrics),
		Prediction: prediction,
		Metrics:    metrics,
	}, nil
}

// ProbeEndpoints checks the health endpoint of every condition concurrently.
// Results are in AllConditions order; unconfigured conditions are reported
// as unhealthy without a request.
func (s *Stack) ProbeEndpoints(ctx context.Context) []external.HealthStatus {
	statuses := make([]external.HealthStatus, len(domain.AllConditions))

	g, gCtx := errgroup.WithContext(ctx)
	for i, kind := range domain.AllConditions {
		g.Go(func() error {
			statuses[i] = s.Prediction.Health(gCtx, kind)
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}
