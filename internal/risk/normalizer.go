package risk

import (
	"time"

	"github.com/neuro-risk-client/internal/domain"
)

// Source describes where a raw percentage came from
type Source struct {
	Confidence *float64
	ModelUsed  string
	Fallback   bool
	// Level overrides the computed tier when the server supplied one. Color
	// defaults to the level's standard color.
	Level domain.RiskLevel
	Color string
}

// Normalizer assembles RiskAssessmentResult values
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a normalizer stamping results with the wall clock
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerWithClock is used by tests that need fixed timestamps
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize rounds the percentage, fills defaults and stamps the result
func (n *Normalizer) Normalize(raw float64, src Source) domain.RiskAssessmentResult {
	pct := RoundPercentage(raw)

	class := Classify(pct)
	if src.Level != "" {
		color := src.Color
		if color == "" {
			color = ColorFor(src.Level)
		}
		if color != "" {
			class = Classification{Level: src.Level, Color: color}
		}
	}

	confidence := domain.DefaultRemoteConfidence
	source := domain.SourceRemote
	if src.Fallback {
		confidence = domain.DefaultFallbackConfidence
		source = domain.SourceFallback
	}
	if src.Confidence != nil && *src.Confidence > 0 && *src.Confidence <= 1 {
		confidence = *src.Confidence
	}

	return domain.RiskAssessmentResult{
		RiskPercentage: pct,
		RiskLevel:      class.Level,
		RiskColor:      class.Color,
		Confidence:     confidence,
		ModelUsed:      src.ModelUsed,
		Source:         source,
		Timestamp:      n.now().UTC().Format(domain.TimestampLayout),
	}
}
