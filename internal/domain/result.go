package domain

import "time"

// RiskLevel is the discrete tier shown next to a risk percentage
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
)

// Display colors for each risk tier
const (
	ColorLow      = "#4CAF50"
	ColorModerate = "#FF9800"
	ColorHigh     = "#F44336"
)

// Default confidences by provenance
const (
	DefaultRemoteConfidence   = 0.85
	DefaultFallbackConfidence = 0.7
)

// ResultSource records which scoring path produced a result
type ResultSource string

const (
	SourceRemote   ResultSource = "remote"
	SourceFallback ResultSource = "fallback"
)

// RawPrediction is the parsed but unnormalized response of a prediction endpoint
type RawPrediction struct {
	RiskPercentage float64
	Confidence     *float64
	RiskLevel      RiskLevel
	RiskColor      string
	ModelUsed      string
}

// RiskAssessmentResult is the final normalized outcome of one assessment.
// Values are created once per submission and never updated.
type RiskAssessmentResult struct {
	RiskPercentage float64      `json:"riskPercentage"`
	RiskLevel      RiskLevel    `json:"riskLevel"`
	RiskColor      string       `json:"riskColor"`
	Confidence     float64      `json:"confidence"`
	ModelUsed      string       `json:"modelUsed,omitempty"`
	Source         ResultSource `json:"source"`
	Timestamp      string       `json:"timestamp"`
}

// TimestampLayout is the ISO-8601 layout used for result timestamps
const TimestampLayout = time.RFC3339Nano
