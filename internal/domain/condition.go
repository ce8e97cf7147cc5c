package domain

import (
	"fmt"
	"strings"
)

// ConditionKind identifies which neurological assessment a feature set belongs to
type ConditionKind string

const (
	ConditionAlzheimer ConditionKind = "alzheimer"
	ConditionParkinson ConditionKind = "parkinson"
	ConditionEpilepsy  ConditionKind = "epilepsy"
)

// AllConditions lists every supported condition in display order
var AllConditions = []ConditionKind{ConditionAlzheimer, ConditionParkinson, ConditionEpilepsy}

// ParseConditionKind accepts the canonical names plus a few common spellings
func ParseConditionKind(s string) (ConditionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alzheimer", "alzheimers", "alzheimer's":
		return ConditionAlzheimer, nil
	case "parkinson", "parkinsons", "parkinson's":
		return ConditionParkinson, nil
	case "epilepsy":
		return ConditionEpilepsy, nil
	default:
		return "", fmt.Errorf("unknown condition %q", s)
	}
}

// DisplayName returns the human-readable condition name
func (c ConditionKind) DisplayName() string {
	switch c {
	case ConditionAlzheimer:
		return "Alzheimer's"
	case ConditionParkinson:
		return "Parkinson's"
	case ConditionEpilepsy:
		return "Epilepsy"
	default:
		return string(c)
	}
}

// FeatureSet is the validated, numeric input of one assessment. Exactly one
// concrete variant exists per ConditionKind.
type FeatureSet interface {
	Condition() ConditionKind
	// Values flattens the variant into dot-path keys, e.g. "datScan.caudateR".
	Values() map[string]float64
}

// Alzheimer optional field defaults
const (
	DefaultMMSEScore = 25.0
	DefaultCDRScore  = 0.5
	DefaultAge       = 65.0
)

// AlzheimerFeatures are the flat imaging and biomarker inputs of the Alzheimer's assessment
type AlzheimerFeatures struct {
	HippocampusVolume           float64 `json:"hippocampus_volume" yaml:"hippocampus_volume"`
	CorticalThickness           float64 `json:"cortical_thickness" yaml:"cortical_thickness"`
	VentricleVolume             float64 `json:"ventricle_volume" yaml:"ventricle_volume"`
	WhiteMatterHyperintensities float64 `json:"white_matter_hyperintensities" yaml:"white_matter_hyperintensities"`
	BrainGlucoseMetabolism      float64 `json:"brain_glucose_metabolism" yaml:"brain_glucose_metabolism"`
	AmyloidDeposition           float64 `json:"amyloid_deposition" yaml:"amyloid_deposition"`
	TauProteinLevel             float64 `json:"tau_protein_level" yaml:"tau_protein_level"`
	MMSEScore                   float64 `json:"mmse_score" yaml:"mmse_score"`
	CDRScore                    float64 `json:"cdr_score" yaml:"cdr_score"`
	Age                         float64 `json:"age" yaml:"age"`
}

// AlzheimerRequiredFields are the keys that must be present for an Alzheimer's assessment
var AlzheimerRequiredFields = []string{
	"hippocampus_volume",
	"cortical_thickness",
	"ventricle_volume",
	"white_matter_hyperintensities",
	"brain_glucose_metabolism",
	"amyloid_deposition",
	"tau_protein_level",
}

// AlzheimerOptionalDefaults maps optional Alzheimer's keys to their clinical defaults
var AlzheimerOptionalDefaults = map[string]float64{
	"mmse_score": DefaultMMSEScore,
	"cdr_score":  DefaultCDRScore,
	"age":        DefaultAge,
}

func (AlzheimerFeatures) Condition() ConditionKind { return ConditionAlzheimer }

func (f AlzheimerFeatures) Values() map[string]float64 {
	return map[string]float64{
		"hippocampus_volume":            f.HippocampusVolume,
		"cortical_thickness":            f.CorticalThickness,
		"ventricle_volume":              f.VentricleVolume,
		"white_matter_hyperintensities": f.WhiteMatterHyperintensities,
		"brain_glucose_metabolism":      f.BrainGlucoseMetabolism,
		"amyloid_deposition":            f.AmyloidDeposition,
		"tau_protein_level":             f.TauProteinLevel,
		"mmse_score":                    f.MMSEScore,
		"cdr_score":                     f.CDRScore,
		"age":                           f.Age,
	}
}

// DatScan holds striatal binding ratios from a DaT-SPECT scan
type DatScan struct {
	CaudateR float64 `json:"caudateR" yaml:"caudateR"`
	CaudateL float64 `json:"caudateL" yaml:"caudateL"`
	PutamenR float64 `json:"putamenR" yaml:"putamenR"`
	PutamenL float64 `json:"putamenL" yaml:"putamenL"`
}

// UPDRS holds the motor examination total
type UPDRS struct {
	NPDTot float64 `json:"npdtot" yaml:"npdtot"`
}

// SmellTest holds the UPSIT olfactory test result
type SmellTest struct {
	UPSITPercentage float64 `json:"upsitPercentage" yaml:"upsitPercentage"`
}

// Cognitive holds the cognitive questionnaire score
type Cognitive struct {
	CogCHQ float64 `json:"cogchq" yaml:"cogchq"`
}

// ParkinsonFeatures are the nested inputs of the Parkinson's assessment
type ParkinsonFeatures struct {
	DatScan   DatScan   `json:"datScan" yaml:"datScan"`
	UPDRS     UPDRS     `json:"updrs" yaml:"updrs"`
	SmellTest SmellTest `json:"smellTest" yaml:"smellTest"`
	Cognitive Cognitive `json:"cognitive" yaml:"cognitive"`
}

// ParkinsonRequiredFields are dot-path keys into the nested Parkinson's payload
var ParkinsonRequiredFields = []string{
	"datScan.caudateR",
	"datScan.caudateL",
	"datScan.putamenR",
	"datScan.putamenL",
	"updrs.npdtot",
	"smellTest.upsitPercentage",
	"cognitive.cogchq",
}

func (ParkinsonFeatures) Condition() ConditionKind { return ConditionParkinson }

func (f ParkinsonFeatures) Values() map[string]float64 {
	return map[string]float64{
		"datScan.caudateR":          f.DatScan.CaudateR,
		"datScan.caudateL":          f.DatScan.CaudateL,
		"datScan.putamenR":          f.DatScan.PutamenR,
		"datScan.putamenL":          f.DatScan.PutamenL,
		"updrs.npdtot":              f.UPDRS.NPDTot,
		"smellTest.upsitPercentage": f.SmellTest.UPSITPercentage,
		"cognitive.cogchq":          f.Cognitive.CogCHQ,
	}
}

// BandValues are EEG spectral band powers
type BandValues struct {
	DeltaPower float64 `json:"delta_power" yaml:"delta_power"`
	ThetaPower float64 `json:"theta_power" yaml:"theta_power"`
	AlphaPower float64 `json:"alpha_power" yaml:"alpha_power"`
	BetaPower  float64 `json:"beta_power" yaml:"beta_power"`
}

// SignalStatistics are time-domain statistics of the EEG signal
type SignalStatistics struct {
	Mean     float64 `json:"mean" yaml:"mean"`
	Variance float64 `json:"variance" yaml:"variance"`
	StdDev   float64 `json:"std_dev" yaml:"std_dev"`
	Skewness float64 `json:"skewness" yaml:"skewness"`
	Kurtosis float64 `json:"kurtosis" yaml:"kurtosis"`
	Entropy  float64 `json:"entropy" yaml:"entropy"`
}

// FrequencyFit are statistics of the fitted frequency distribution
type FrequencyFit struct {
	FitMean     float64 `json:"fit_mean" yaml:"fit_mean"`
	FitVariance float64 `json:"fit_variance" yaml:"fit_variance"`
	FitStdDev   float64 `json:"fit_std_dev" yaml:"fit_std_dev"`
	FitSkewness float64 `json:"fit_skewness" yaml:"fit_skewness"`
	FitKurtosis float64 `json:"fit_kurtosis" yaml:"fit_kurtosis"`
}

// EpilepsyFeatures are the EEG-derived inputs of the epilepsy assessment
type EpilepsyFeatures struct {
	BandValues BandValues       `json:"bandValues" yaml:"bandValues"`
	Statistics SignalStatistics `json:"statistics" yaml:"statistics"`
	Frequency  FrequencyFit     `json:"frequency" yaml:"frequency"`
}

// EpilepsyRequiredFields are dot-path keys into the nested epilepsy payload
var EpilepsyRequiredFields = []string{
	"bandValues.delta_power",
	"bandValues.theta_power",
	"bandValues.alpha_power",
	"bandValues.beta_power",
	"statistics.mean",
	"statistics.variance",
	"statistics.std_dev",
	"statistics.skewness",
	"statistics.kurtosis",
	"statistics.entropy",
	"frequency.fit_mean",
	"frequency.fit_variance",
	"frequency.fit_std_dev",
	"frequency.fit_skewness",
	"frequency.fit_kurtosis",
}

func (EpilepsyFeatures) Condition() ConditionKind { return ConditionEpilepsy }

func (f EpilepsyFeatures) Values() map[string]float64 {
	return map[string]float64{
		"bandValues.delta_power": f.BandValues.DeltaPower,
		"bandValues.theta_power": f.BandValues.ThetaPower,
		"bandValues.alpha_power": f.BandValues.AlphaPower,
		"bandValues.beta_power":  f.BandValues.BetaPower,
		"statistics.mean":        f.Statistics.Mean,
		"statistics.variance":    f.Statistics.Variance,
		"statistics.std_dev":     f.Statistics.StdDev,
		"statistics.skewness":    f.Statistics.Skewness,
		"statistics.kurtosis":    f.Statistics.Kurtosis,
		"statistics.entropy":     f.Statistics.Entropy,
		"frequency.fit_mean":     f.Frequency.FitMean,
		"frequency.fit_variance": f.Frequency.FitVariance,
		"frequency.fit_std_dev":  f.Frequency.FitStdDev,
		"frequency.fit_skewness": f.Frequency.FitSkewness,
		"frequency.fit_kurtosis": f.Frequency.FitKurtosis,
	}
}

// RequiredFields returns the mandatory keys of the given condition
func RequiredFields(kind ConditionKind) ([]string, error) {
	switch kind {
	case ConditionAlzheimer:
		return AlzheimerRequiredFields, nil
	case ConditionParkinson:
		return ParkinsonRequiredFields, nil
	case ConditionEpilepsy:
		return EpilepsyRequiredFields, nil
	default:
		return nil, fmt.Errorf("unknown condition %q", kind)
	}
}
