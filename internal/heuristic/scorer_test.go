package heuristic

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuro-risk-client/internal/domain"
)

func goldenParkinson() domain.ParkinsonFeatures {
	return domain.ParkinsonFeatures{
		DatScan:   domain.DatScan{CaudateR: 3.28, CaudateL: 3.2, PutamenR: 2.53, PutamenL: 2.71},
		UPDRS:     domain.UPDRS{NPDTot: 3},
		SmellTest: domain.SmellTest{UPSITPercentage: 11},
		Cognitive: domain.Cognitive{CogCHQ: 1},
	}
}

func sampleAlzheimer() domain.AlzheimerFeatures {
	return domain.AlzheimerFeatures{
		HippocampusVolume:           3.2,
		CorticalThickness:           2.4,
		VentricleVolume:             28.5,
		WhiteMatterHyperintensities: 1.2,
		BrainGlucoseMetabolism:      5.1,
		AmyloidDeposition:           0.8,
		TauProteinLevel:             0.6,
		MMSEScore:                   domain.DefaultMMSEScore,
		CDRScore:                    domain.DefaultCDRScore,
		Age:                         domain.DefaultAge,
	}
}

func TestScoreParkinsonGolden(t *testing.T) {
	// caudate avg 3.24, putamen avg 2.62:
	// (-0.24*15 + 0.38*20 + 3*8 + 19*0.7 + 1*12) / 10 = 53.3 / 10
	got := ScoreParkinson(goldenParkinson(), CanonicalParkinsonWeights)

	assert.InDelta(t, 5.33, got, 1e-9)
	assert.Equal(t, 5.3, math.Round(got*10)/10)
}

func TestScoreParkinsonLegacyWeights(t *testing.T) {
	// (-0.24*10 + 0.38*15 + 3*5 + 19*0.5 + 1*10) / 10 = 37.8 / 10
	got := ScoreParkinson(goldenParkinson(), LegacyParkinsonWeights)
	assert.InDelta(t, 3.78, got, 1e-9)
}

func TestScoreParkinsonDeterministic(t *testing.T) {
	s := NewScorer()
	first, err := s.ScoreLocally(domain.ConditionParkinson, goldenParkinson())
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		again, err := s.ScoreLocally(domain.ConditionParkinson, goldenParkinson())
		require.NoError(t, err)
		require.Equal(t, math.Float64bits(first), math.Float64bits(again))
	}
}

func TestScoreParkinsonClamped(t *testing.T) {
	tests := []struct {
		name     string
		features domain.ParkinsonFeatures
		expected float64
	}{
		{
			name: "adversarial high",
			features: domain.ParkinsonFeatures{
				DatScan:   domain.DatScan{},
				UPDRS:     domain.UPDRS{NPDTot: 1000},
				SmellTest: domain.SmellTest{UPSITPercentage: 0},
				Cognitive: domain.Cognitive{CogCHQ: 100},
			},
			expected: 100,
		},
		{
			name: "adversarial low",
			features: domain.ParkinsonFeatures{
				DatScan:   domain.DatScan{CaudateR: 50, CaudateL: 50, PutamenR: 50, PutamenL: 50},
				SmellTest: domain.SmellTest{UPSITPercentage: 100},
			},
			expected: 0,
		},
		{
			name: "zero ratios and zero smell",
			features: domain.ParkinsonFeatures{
				SmellTest: domain.SmellTest{UPSITPercentage: 0},
			},
			// (3*15 + 3*20 + 30*0.7) / 10
			expected: 12.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreParkinson(tt.features, CanonicalParkinsonWeights)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestScoreAlzheimer(t *testing.T) {
	factors := ComputeAlzheimerFactors(sampleAlzheimer())
	assert.InDelta(t, 45.5, factors.Hippocampus, 1e-9)
	assert.InDelta(t, 49.5, factors.Cortical, 1e-9)
	assert.InDelta(t, 54.0, factors.Ventricle, 1e-9)
	assert.InDelta(t, 18.0, factors.WhiteMatter, 1e-9)
	assert.InDelta(t, 57.0, factors.Glucose, 1e-9)
	assert.InDelta(t, 48.0, factors.Amyloid, 1e-9)
	assert.InDelta(t, 30.0, factors.Tau, 1e-9)

	// weighted 43.975, amplified x1.3
	got := ScoreAlzheimer(sampleAlzheimer(), DefaultAlzheimerWeights)
	assert.InDelta(t, 57.1675, got, 1e-9)
}

func TestScoreAlzheimerClamped(t *testing.T) {
	extreme := domain.AlzheimerFeatures{
		HippocampusVolume:           0,
		CorticalThickness:           0,
		VentricleVolume:             500,
		WhiteMatterHyperintensities: 50,
		BrainGlucoseMetabolism:      0,
		AmyloidDeposition:           10,
		TauProteinLevel:             10,
	}
	assert.Equal(t, 100.0, ScoreAlzheimer(extreme, DefaultAlzheimerWeights))

	healthy := domain.AlzheimerFeatures{
		HippocampusVolume:      5,
		CorticalThickness:      4,
		VentricleVolume:        10,
		BrainGlucoseMetabolism: 8,
	}
	assert.Equal(t, 0.0, ScoreAlzheimer(healthy, DefaultAlzheimerWeights))
}

func TestScoreLocally(t *testing.T) {
	s := NewScorer()

	t.Run("epilepsy has no heuristic", func(t *testing.T) {
		_, err := s.ScoreLocally(domain.ConditionEpilepsy, domain.EpilepsyFeatures{})
		var hu *domain.HeuristicUnavailableError
		require.True(t, errors.As(err, &hu))
		assert.Equal(t, domain.ConditionEpilepsy, hu.Condition)
		assert.False(t, s.Supports(domain.ConditionEpilepsy))
	})

	t.Run("mismatched features", func(t *testing.T) {
		_, err := s.ScoreLocally(domain.ConditionAlzheimer, goldenParkinson())
		assert.Error(t, err)
	})

	t.Run("nil features", func(t *testing.T) {
		_, err := s.ScoreLocally(domain.ConditionParkinson, nil)
		assert.Error(t, err)
	})

	t.Run("pointer variants", func(t *testing.T) {
		fs := goldenParkinson()
		got, err := s.ScoreLocally(domain.ConditionParkinson, &fs)
		require.NoError(t, err)
		assert.InDelta(t, 5.33, got, 1e-9)
	})

	t.Run("weight override", func(t *testing.T) {
		legacy := NewScorer(WithParkinsonWeights(LegacyParkinsonWeights))
		got, err := legacy.ScoreLocally(domain.ConditionParkinson, goldenParkinson())
		require.NoError(t, err)
		assert.InDelta(t, 3.78, got, 1e-9)
	})

	t.Run("alzheimer", func(t *testing.T) {
		got, err := s.ScoreLocally(domain.ConditionAlzheimer, sampleAlzheimer())
		require.NoError(t, err)
		assert.InDelta(t, 57.1675, got, 1e-9)
	})
}

func TestParkinsonWeightsFor(t *testing.T) {
	tests := []struct {
		name    string
		want    ParkinsonWeights
		wantErr bool
	}{
		{name: "", want: CanonicalParkinsonWeights},
		{name: "canonical", want: CanonicalParkinsonWeights},
		{name: "Legacy", want: LegacyParkinsonWeights},
		{name: "experimental", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParkinsonWeightsFor(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
