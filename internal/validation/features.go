// Package validation checks raw clinical feature payloads and converts them
// into typed, numeric feature sets before any scoring happens.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/neuro-risk-client/internal/domain"
)

// Validate checks that every required key is present and parses as a finite
// number. Keys may be dot paths ("datScan.caudateR") into nested objects.
// The returned map holds the coerced values of the required keys only.
func Validate(features map[string]interface{}, required []string) (map[string]float64, error) {
	if features == nil {
		features = map[string]interface{}{}
	}

	values := make(map[string]float64, len(required))
	for _, key := range required {
		raw, ok := lookup(features, key)
		if !ok {
			return nil, domain.NewMissingFieldError(key, "required field is missing", nil)
		}

		v, err := toFloat(raw)
		if err != nil {
			return nil, domain.NewMissingFieldError(key, err.Error(), raw)
		}
		values[key] = v
	}

	return values, nil
}

// Parse validates a raw payload for the given condition and returns the
// matching FeatureSet variant
func Parse(kind domain.ConditionKind, raw map[string]interface{}) (domain.FeatureSet, error) {
	var (
		fs  domain.FeatureSet
		err error
	)
	switch kind {
	case domain.ConditionAlzheimer:
		fs, err = ParseAlzheimer(raw)
	case domain.ConditionParkinson:
		fs, err = ParseParkinson(raw)
	case domain.ConditionEpilepsy:
		fs, err = ParseEpilepsy(raw)
	default:
		return nil, domain.NewValidationError("condition", "unknown condition", string(kind))
	}
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// ParseAlzheimer validates the flat Alzheimer's payload. Optional fields that
// are absent or blank take their clinical defaults.
func ParseAlzheimer(raw map[string]interface{}) (domain.AlzheimerFeatures, error) {
	v, err := Validate(raw, domain.AlzheimerRequiredFields)
	if err != nil {
		return domain.AlzheimerFeatures{}, fmt.Errorf("validating alzheimer features: %w", err)
	}

	for key, def := range domain.AlzheimerOptionalDefaults {
		opt, err := optional(raw, key, def)
		if err != nil {
			return domain.AlzheimerFeatures{}, fmt.Errorf("validating alzheimer features: %w", err)
		}
		v[key] = opt
	}

	return domain.AlzheimerFeatures{
		HippocampusVolume:           v["hippocampus_volume"],
		CorticalThickness:           v["cortical_thickness"],
		VentricleVolume:             v["ventricle_volume"],
		WhiteMatterHyperintensities: v["white_matter_hyperintensities"],
		BrainGlucoseMetabolism:      v["brain_glucose_metabolism"],
		AmyloidDeposition:           v["amyloid_deposition"],
		TauProteinLevel:             v["tau_protein_level"],
		MMSEScore:                   v["mmse_score"],
		CDRScore:                    v["cdr_score"],
		Age:                         v["age"],
	}, nil
}

// ParseParkinson validates the nested Parkinson's payload
func ParseParkinson(raw map[string]interface{}) (domain.ParkinsonFeatures, error) {
	v, err := Validate(raw, domain.ParkinsonRequiredFields)
	if err != nil {
		return domain.ParkinsonFeatures{}, fmt.Errorf("validating parkinson features: %w", err)
	}

	return domain.ParkinsonFeatures{
		DatScan: domain.DatScan{
			CaudateR: v["datScan.caudateR"],
			CaudateL: v["datScan.caudateL"],
			PutamenR: v["datScan.putamenR"],
			PutamenL: v["datScan.putamenL"],
		},
		UPDRS:     domain.UPDRS{NPDTot: v["updrs.npdtot"]},
		SmellTest: domain.SmellTest{UPSITPercentage: v["smellTest.upsitPercentage"]},
		Cognitive: domain.Cognitive{CogCHQ: v["cognitive.cogchq"]},
	}, nil
}

// ParseEpilepsy validates the nested EEG payload
func ParseEpilepsy(raw map[string]interface{}) (domain.EpilepsyFeatures, error) {
	v, err := Validate(raw, domain.EpilepsyRequiredFields)
	if err != nil {
		return domain.EpilepsyFeatures{}, fmt.Errorf("validating epilepsy features: %w", err)
	}

	return domain.EpilepsyFeatures{
		BandValues: domain.BandValues{
			DeltaPower: v["bandValues.delta_power"],
			ThetaPower: v["bandValues.theta_power"],
			AlphaPower: v["bandValues.alpha_power"],
			BetaPower:  v["bandValues.beta_power"],
		},
		Statistics: domain.SignalStatistics{
			Mean:     v["statistics.mean"],
			Variance: v["statistics.variance"],
			StdDev:   v["statistics.std_dev"],
			Skewness: v["statistics.skewness"],
			Kurtosis: v["statistics.kurtosis"],
			Entropy:  v["statistics.entropy"],
		},
		Frequency: domain.FrequencyFit{
			FitMean:     v["frequency.fit_mean"],
			FitVariance: v["frequency.fit_variance"],
			FitStdDev:   v["frequency.fit_std_dev"],
			FitSkewness: v["frequency.fit_skewness"],
			FitKurtosis: v["frequency.fit_kurtosis"],
		},
	}, nil
}

func optional(raw map[string]interface{}, key string, def float64) (float64, error) {
	val, ok := lookup(raw, key)
	if !ok || val == nil {
		return def, nil
	}
	if s, isString := val.(string); isString && strings.TrimSpace(s) == "" {
		return def, nil
	}

	f, err := toFloat(val)
	if err != nil {
		return 0, domain.NewValidationError(key, err.Error(), val)
	}
	return f, nil
}

// lookup resolves a key either verbatim or as a dot path through nested maps
func lookup(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}

	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil, false
	}
	child, ok := m[head].(map[string]interface{})
	if !ok {
		return nil, false
	}
	return lookup(child, rest)
}

func toFloat(v interface{}) (float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("value is null")
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", string(n))
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, fmt.Errorf("value is empty")
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value must be a finite number")
	}
	return f, nil
}
