package heuristic

import (
	"fmt"
	"strings"

	"github.com/neuro-risk-client/internal/domain"
)

// ParkinsonWeights weight the five terms of the Parkinson's heuristic
type ParkinsonWeights struct {
	Caudate   float64 `json:"caudate"`
	Putamen   float64 `json:"putamen"`
	UPDRS     float64 `json:"updrs"`
	Smell     float64 `json:"smell"`
	Cognitive float64 `json:"cognitive"`
}

var (
	// CanonicalParkinsonWeights is the production weight vector
	CanonicalParkinsonWeights = ParkinsonWeights{Caudate: 15, Putamen: 20, UPDRS: 8, Smell: 0.7, Cognitive: 12}

	// LegacyParkinsonWeights is the softer vector used by the older result
	// screen. Kept for side-by-side comparison only.
	LegacyParkinsonWeights = ParkinsonWeights{Caudate: 10, Putamen: 15, UPDRS: 5, Smell: 0.5, Cognitive: 10}
)

// ParkinsonWeightsFor resolves a named weight profile, "canonical" or "legacy".
// An empty name selects the canonical vector.
func ParkinsonWeightsFor(name string) (ParkinsonWeights, error) {
	switch strings.ToLower(name) {
	case "", "canonical":
		return CanonicalParkinsonWeights, nil
	case "legacy":
		return LegacyParkinsonWeights, nil
	default:
		return ParkinsonWeights{}, fmt.Errorf("unknown Parkinson's weight profile %q", name)
	}
}

// Reference values that the DaT-scan and smell terms are measured against
const (
	normalStriatalRatio = 3.0
	normalUPSITScore    = 30.0
)

// ScoreParkinson applies the weighted-sum heuristic
//
//	((3 - avg(caudate))*W1 + (3 - avg(putamen))*W2 + npdtot*W3 + (30 - upsit)*W4 + cogchq*W5) / 10
//
// and clamps the result to [0,100].
func ScoreParkinson(f domain.ParkinsonFeatures, w ParkinsonWeights) float64 {
	caudate := (f.DatScan.CaudateR + f.DatScan.CaudateL) / 2
	putamen := (f.DatScan.PutamenR + f.DatScan.PutamenL) / 2

	score := float64((normalStriatalRatio-caudate)*w.Caudate) +
		float64((normalStriatalRatio-putamen)*w.Putamen) +
		float64(f.UPDRS.NPDTot*w.UPDRS) +
		float64((normalUPSITScore-f.SmellTest.UPSITPercentage)*w.Smell) +
		float64(f.Cognitive.CogCHQ*w.Cognitive)

	return ClampPercentage(score / 10)
}
