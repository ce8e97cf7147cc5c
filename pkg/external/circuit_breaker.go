package external

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/neuro-risk-client/internal/domain"
)

// Predictor is the single-request contract shared by PredictionClient and ResilientGateway
type Predictor interface {
	Predict(ctx context.Context, features domain.FeatureSet) (*domain.RawPrediction, error)
}

// ResilientGateway wraps a Predictor with one circuit breaker per condition.
// An open breaker fails fast with GatewayUnavailable so the caller can fall
// back to the local heuristic without waiting for the timeout.
type ResilientGateway struct {
	client   Predictor
	breakers map[domain.ConditionKind]*gobreaker.CircuitBreaker
	logger   *logrus.Logger
}

// NewResilientGateway creates a gateway with circuit breakers for every condition
func NewResilientGateway(client Predictor, config domain.CircuitBreakerConfig, logger *logrus.Logger) *ResilientGateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	g := &ResilientGateway{
		client:   client,
		breakers: make(map[domain.ConditionKind]*gobreaker.CircuitBreaker, len(domain.AllConditions)),
		logger:   logger,
	}
	for _, kind := range domain.AllConditions {
		g.breakers[kind] = gobreaker.NewCircuitBreaker(breakerSettings(string(kind), config, logger))
	}
	return g
}

func breakerSettings(name string, config domain.CircuitBreakerConfig, logger *logrus.Logger) gobreaker.Settings {
	maxRequests := config.MaxRequests
	if maxRequests == 0 {
		maxRequests = 5
	}
	minRequests := config.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}
	ratio := config.FailureRatio
	if ratio == 0 {
		ratio = 0.6
	}

	return gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= ratio
		},
		// Caller cancellation says nothing about the endpoint's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"condition": name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("Prediction circuit breaker changed state")
		},
	}
}

// Predict runs the request through the condition's circuit breaker
func (g *ResilientGateway) Predict(ctx context.Context, features domain.FeatureSet) (*domain.RawPrediction, error) {
	kind := features.Condition()
	breaker, ok := g.breakers[kind]
	if !ok {
		return g.client.Predict(ctx, features)
	}

	result, err := breaker.Execute(func() (interface{}, error) {
		return g.client.Predict(ctx, features)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.GatewayError{Kind: domain.GatewayUnavailable, Condition: kind, Err: err}
		}
		return nil, err
	}

	return result.(*domain.RawPrediction), nil
}

// States returns the current breaker state per condition
func (g *ResilientGateway) States() map[domain.ConditionKind]gobreaker.State {
	states := make(map[domain.ConditionKind]gobreaker.State, len(g.breakers))
	for kind, b := range g.breakers {
		states[kind] = b.State()
	}
	return states
}

// Counts returns the current breaker counters per condition
func (g *ResilientGateway) Counts() map[domain.ConditionKind]gobreaker.Counts {
	counts := make(map[domain.ConditionKind]gobreaker.Counts, len(g.breakers))
	for kind, b := range g.breakers {
		counts[kind] = b.Counts()
	}
	return counts
}
