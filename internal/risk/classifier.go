// Package risk maps risk percentages onto display tiers and assembles the
// final assessment result shared by the remote and local scoring paths.
package risk

import (
	"math"

	"github.com/neuro-risk-client/internal/domain"
)

// Tier boundaries. Both are inclusive on the Moderate side.
const (
	ModerateThreshold = 30.0
	HighThreshold     = 60.0
)

// Classification is a risk tier with its display color
type Classification struct {
	Level domain.RiskLevel `json:"level"`
	Color string           `json:"color"`
}

// Classify maps a percentage onto Low (<30), Moderate (30..60) or High (>60)
func Classify(percentage float64) Classification {
	switch {
	case percentage > HighThreshold:
		return Classification{Level: domain.RiskHigh, Color: domain.ColorHigh}
	case percentage >= ModerateThreshold:
		return Classification{Level: domain.RiskModerate, Color: domain.ColorModerate}
	default:
		return Classification{Level: domain.RiskLow, Color: domain.ColorLow}
	}
}

// ColorFor returns the display color of a risk level, or "" if unknown
func ColorFor(level domain.RiskLevel) string {
	switch level {
	case domain.RiskLow:
		return domain.ColorLow
	case domain.RiskModerate:
		return domain.ColorModerate
	case domain.RiskHigh:
		return domain.ColorHigh
	default:
		return ""
	}
}

// ParseLevel normalizes a server-supplied level name
func ParseLevel(s string) (domain.RiskLevel, bool) {
	switch s {
	case "Low", "low", "LOW":
		return domain.RiskLow, true
	case "Moderate", "moderate", "MODERATE", "Medium", "medium", "MEDIUM":
		return domain.RiskModerate, true
	case "High", "high", "HIGH":
		return domain.RiskHigh, true
	default:
		return "", false
	}
}

// RoundPercentage rounds to one decimal place
func RoundPercentage(p float64) float64 {
	return math.Round(p*10) / 10
}
