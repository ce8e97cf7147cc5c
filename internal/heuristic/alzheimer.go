package heuristic

import "github.com/neuro-risk-client/internal/domain"

// AlzheimerWeights weight the seven biomarker factors. They sum to 1.
type AlzheimerWeights struct {
	Hippocampus float64 `json:"hippocampus"`
	Cortical    float64 `json:"cortical"`
	Ventricle   float64 `json:"ventricle"`
	WhiteMatter float64 `json:"white_matter"`
	Glucose     float64 `json:"glucose"`
	Amyloid     float64 `json:"amyloid"`
	Tau         float64 `json:"tau"`
}

// DefaultAlzheimerWeights mirror the prediction server's own fallback scorer
var DefaultAlzheimerWeights = AlzheimerWeights{
	Hippocampus: 0.20,
	Cortical:    0.15,
	Ventricle:   0.10,
	WhiteMatter: 0.10,
	Glucose:     0.15,
	Amyloid:     0.15,
	Tau:         0.15,
}

// alzheimerAmplification stretches the weighted average so that small biomarker
// changes move the percentage visibly
const alzheimerAmplification = 1.3

// AlzheimerFactors are the per-biomarker sub-scores, each in [0,100]
type AlzheimerFactors struct {
	Hippocampus float64 `json:"hippocampus"`
	Cortical    float64 `json:"cortical"`
	Ventricle   float64 `json:"ventricle"`
	WhiteMatter float64 `json:"white_matter"`
	Glucose     float64 `json:"glucose"`
	Amyloid     float64 `json:"amyloid"`
	Tau         float64 `json:"tau"`
}

// ComputeAlzheimerFactors scores each biomarker against its normal range.
// Optional fields (MMSE, CDR, age) do not contribute.
func ComputeAlzheimerFactors(f domain.AlzheimerFeatures) AlzheimerFactors {
	return AlzheimerFactors{
		// hippocampus normal ~4.0-4.5 cm3, lower is worse
		Hippocampus: ClampPercentage(float64((4.5 - f.HippocampusVolume) * 35)),
		// cortex normal ~3.0-3.5 mm
		Cortical: ClampPercentage(float64((3.5 - f.CorticalThickness) * 45)),
		// ventricles normal ~15-25 cm3, higher is worse
		Ventricle:   ClampPercentage(float64((f.VentricleVolume - 15) * 4)),
		WhiteMatter: ClampPercentage(float64(f.WhiteMatterHyperintensities * 15)),
		// glucose SUV normal ~6-7
		Glucose: ClampPercentage(float64((7.0 - f.BrainGlucoseMetabolism) * 30)),
		Amyloid: ClampPercentage(float64(f.AmyloidDeposition * 60)),
		Tau:     ClampPercentage(float64(f.TauProteinLevel * 50)),
	}
}

// ScoreAlzheimer combines the biomarker factors into a clamped percentage
func ScoreAlzheimer(f domain.AlzheimerFeatures, w AlzheimerWeights) float64 {
	x := ComputeAlzheimerFactors(f)

	weighted := float64(x.Hippocampus*w.Hippocampus) +
		float64(x.Cortical*w.Cortical) +
		float64(x.Ventricle*w.Ventricle) +
		float64(x.WhiteMatter*w.WhiteMatter) +
		float64(x.Glucose*w.Glucose) +
		float64(x.Amyloid*w.Amyloid) +
		float64(x.Tau*w.Tau)

	return ClampPercentage(float64(weighted * alzheimerAmplification))
}
