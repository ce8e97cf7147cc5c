// Package heuristic implements the offline, deterministic risk formulas used
// when a remote prediction is unavailable.
//
// Every product is wrapped in an explicit float64 conversion. Go may fuse
// x*y+z into a single FMA instruction on some architectures; the conversion
// forces the intermediate rounding so results are bit-identical on every
// platform.
package heuristic

import (
	"fmt"
	"math"

	"github.com/neuro-risk-client/internal/domain"
)

// Scorer computes local risk percentages. The zero value is not usable; use NewScorer.
type Scorer struct {
	parkinson ParkinsonWeights
	alzheimer AlzheimerWeights
}

// Option configures a Scorer
type Option func(*Scorer)

// WithParkinsonWeights overrides the canonical Parkinson's weight vector
func WithParkinsonWeights(w ParkinsonWeights) Option {
	return func(s *Scorer) {
		s.parkinson = w
	}
}

// WithAlzheimerWeights overrides the default Alzheimer's weights
func WithAlzheimerWeights(w AlzheimerWeights) Option {
	return func(s *Scorer) {
		s.alzheimer = w
	}
}

// NewScorer creates a scorer using the canonical weight vectors
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		parkinson: CanonicalParkinsonWeights,
		alzheimer: DefaultAlzheimerWeights,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Supports reports whether a local formula exists for the condition
func (s *Scorer) Supports(kind domain.ConditionKind) bool {
	return kind == domain.ConditionAlzheimer || kind == domain.ConditionParkinson
}

// ScoreLocally returns a risk percentage clamped to [0,100]. It fails with
// HeuristicUnavailableError for conditions without a formula.
func (s *Scorer) ScoreLocally(kind domain.ConditionKind, features domain.FeatureSet) (float64, error) {
	if features == nil {
		return 0, fmt.Errorf("scoring %s locally: features are nil", kind)
	}
	if features.Condition() != kind {
		return 0, fmt.Errorf("scoring %s locally: got %s features", kind, features.Condition())
	}

	switch f := features.(type) {
	case domain.ParkinsonFeatures:
		return ScoreParkinson(f, s.parkinson), nil
	case *domain.ParkinsonFeatures:
		return ScoreParkinson(*f, s.parkinson), nil
	case domain.AlzheimerFeatures:
		return ScoreAlzheimer(f, s.alzheimer), nil
	case *domain.AlzheimerFeatures:
		return ScoreAlzheimer(*f, s.alzheimer), nil
	default:
		return 0, &domain.HeuristicUnavailableError{Condition: kind}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ClampPercentage bounds a score to the valid percentage range
func ClampPercentage(v float64) float64 {
	return clamp(v, 0, 100)
}
