package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuro-risk-client/internal/history"
)

const parkinsonYAML = `
datScan:
  caudateR: 3.28
  caudateL: 3.2
  putamenR: 2.53
  putamenL: 2.71
updrs:
  npdtot: 3
smellTest:
  upsitPercentage: 11
cognitive:
  cogchq: 1
`

const alzheimerJSON = `{
	"hippocampus_volume": 3.2,
	"cortical_thickness": 2.4,
	"ventricle_volume": 28.5,
	"white_matter_hyperintensities": 1.2,
	"brain_glucose_metabolism": 5.1,
	"amyloid_deposition": 0.8,
	"tau_protein_level": 0.6
}`

const batchYAML = `
- name: pd-1
  condition: Parkinson's
  features:
    datScan: {caudateR: 3.28, caudateL: 3.2, putamenR: 2.53, putamenL: 2.71}
    updrs: {npdtot: 3}
    smellTest: {upsitPercentage: 11}
    cognitive: {cogchq: 1}
- name: ep-1
  condition: epilepsy
  features:
    bandValues: {delta_power: 12.1, theta_power: 8.4, alpha_power: 10.2, beta_power: 4.3}
    statistics: {mean: 0.01, variance: 1.2, std_dev: 1.1, skewness: 0.3, kurtosis: 3.4, entropy: 0.92}
    frequency: {fit_mean: 9.8, fit_variance: 2.2, fit_std_dev: 1.48, fit_skewness: 0.1, fit_kurtosis: 2.9}
`

type env struct {
	dir        string
	configPath string
}

// newEnv writes a config pointing the Parkinson's endpoint at parkinsonURL
// and history at a SQLite file, so state survives between invocations.
func newEnv(t *testing.T, parkinsonURL, backend string) *env {
	t.Helper()
	dir := t.TempDir()

	cfg := fmt.Sprintf(`
prediction:
  timeout: 2s
  endpoints:
    alzheimer: ""
    parkinson: %q
    epilepsy: ""
  circuit_breaker:
    enabled: false
history:
  backend: %s
  sqlite_path: %q
logging:
  level: error
`, parkinsonURL, backend, filepath.Join(dir, "history.db"))

	e := &env{dir: dir, configPath: filepath.Join(dir, "config.yaml")}
	require.NoError(t, os.WriteFile(e.configPath, []byte(cfg), 0644))
	return e
}

func (e *env) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (e *env) run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func failingBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAssess_Fallback(t *testing.T) {
	e := newEnv(t, failingBackend(t).URL, "sqlite")
	features := e.file(t, "pd.yaml", parkinsonYAML)

	out, err := e.run("assess", "parkinson", "--file", features)
	require.NoError(t, err)
	assert.Contains(t, out, "Parkinson's [LOW] 5.3%")
	assert.Contains(t, out, "source fallback")

	out, err = e.run("history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 assessments")
}

func TestAssess_RemoteJSON(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"riskPercentage": 72.44, "model_used": "xgb"}`))
	}))
	defer backend.Close()

	e := newEnv(t, backend.URL, "sqlite")
	features := e.file(t, "pd.json", `{"datScan": {"caudateR": 3.28, "caudateL": 3.2, "putamenR": 2.53, "putamenL": 2.71},
		"updrs": {"npdtot": 3}, "smellTest": {"upsitPercentage": 11}, "cognitive": {"cogchq": 1}}`)

	out, err := e.run("--json", "assess", "parkinsons", "-f", features)
	require.NoError(t, err)

	var rec history.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 72.4, rec.Result.RiskPercentage)
	assert.Equal(t, "High", string(rec.Result.RiskLevel))
	assert.Equal(t, "xgb", rec.Result.ModelUsed)
	assert.Equal(t, 0.85, rec.Result.Confidence)

	out, err = e.run("history", "show", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Parkinson's [HIGH] 72.4%")
	assert.Contains(t, out, "datScan.caudateR")
}

func TestLocal(t *testing.T) {
	calls := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer backend.Close()

	e := newEnv(t, backend.URL, "sqlite")
	features := e.file(t, "ad.json", alzheimerJSON)

	out, err := e.run("local", "alzheimer", "--file", features)
	require.NoError(t, err)
	assert.Contains(t, out, "Alzheimer's [MODERATE] 57.2%")
	assert.Zero(t, calls)

	out, err = e.run("history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no assessments recorded")
}

func TestAssess_Batch(t *testing.T) {
	e := newEnv(t, failingBackend(t).URL, "sqlite")
	batch := e.file(t, "cohort.yaml", batchYAML)

	out, err := e.run("assess", "--batch", batch, "--concurrency", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 assessments failed")
	assert.Contains(t, out, "pd-1: Parkinson's [LOW] 5.3%")
	assert.Contains(t, out, "✗ ep-1")

	out, err = e.run("--json", "history", "list", "--condition", "parkinson")
	require.NoError(t, err)
	var listed struct {
		Records []*history.Record `json:"records"`
		Total   int64             `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, int64(1), listed.Total)
}

func TestAssess_ArgumentErrors(t *testing.T) {
	e := newEnv(t, failingBackend(t).URL, "sqlite")
	features := e.file(t, "pd.yaml", parkinsonYAML)
	empty := e.file(t, "empty.yaml", "")
	eeg := e.file(t, "eeg.json", `{
		"bandValues": {"delta_power": 12.1, "theta_power": 8.4, "alpha_power": 10.2, "beta_power": 4.3},
		"statistics": {"mean": 0.01, "variance": 1.2, "std_dev": 1.1, "skewness": 0.3, "kurtosis": 3.4, "entropy": 0.92},
		"frequency": {"fit_mean": 9.8, "fit_variance": 2.2, "fit_std_dev": 1.48, "fit_skewness": 0.1, "fit_kurtosis": 2.9}
	}`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no file", []string{"assess", "parkinson"}, "--file are required"},
		{"unknown condition", []string{"assess", "migraine", "-f", features}, "unknown condition"},
		{"missing file", []string{"assess", "parkinson", "-f", filepath.Join(e.dir, "absent.yaml")}, "no such file"},
		{"empty file", []string{"assess", "parkinson", "-f", empty}, "holds no features"},
		{"batch with condition", []string{"assess", "parkinson", "--batch", features}, "cannot be combined"},
		{"invalid features", []string{"local", "alzheimer", "-f", features}, "validation error"},
		{"no local heuristic", []string{"local", "epilepsy", "-f", eeg}, "no local heuristic for epilepsy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHistory_ExportImportDelete(t *testing.T) {
	e := newEnv(t, failingBackend(t).URL, "sqlite")
	features := e.file(t, "pd.yaml", parkinsonYAML)

	for i := 0; i < 2; i++ {
		_, err := e.run("assess", "parkinson", "-f", features)
		require.NoError(t, err)
	}

	export := filepath.Join(e.dir, "export.json")
	_, err := e.run("history", "export", "-o", export)
	require.NoError(t, err)

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	var exported history.Export
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported.Records, 2)

	xlsx := filepath.Join(e.dir, "export.xlsx")
	_, err = e.run("history", "export", "--format", "xlsx", "-o", xlsx)
	require.NoError(t, err)
	assert.FileExists(t, xlsx)

	_, err = e.run("history", "export", "--format", "xlsx")
	assert.Error(t, err)

	out, err := e.run("history", "delete", exported.Records[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	out, err = e.run("history", "import", export)
	require.NoError(t, err)
	assert.Equal(t, "imported 1, skipped 1\n", out)

	_, err = e.run("history", "show", "no-such-id")
	assert.Error(t, err)

	_, err = e.run("history", "list", "--source", "cloud")
	assert.Error(t, err)
}

func TestHistory_Disabled(t *testing.T) {
	e := newEnv(t, failingBackend(t).URL, "none")

	_, err := e.run("history", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is disabled")

	features := e.file(t, "pd.yaml", parkinsonYAML)
	out, err := e.run("assess", "parkinson", "-f", features)
	require.NoError(t, err)
	assert.Contains(t, out, "5.3%")
}

func TestHealth(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	e := newEnv(t, healthy.URL+"/api/parkinson-prediction", "none")

	out, err := e.run("health", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Parkinson's")
	assert.Contains(t, out, "✗ Alzheimer's")
	assert.Contains(t, out, "no endpoint configured")

	e = newEnv(t, failingBackend(t).URL, "none")
	out, err = e.run("health", "--strict")
	require.Error(t, err)
	assert.Contains(t, out, "status 500")
}

func TestSetup(t *testing.T) {
	e := newEnv(t, "http://models.internal:5000/api/parkinson-prediction", "none")
	clientConfig := filepath.Join(e.dir, "client", "claude_desktop_config.json")
	binary := e.file(t, "neuro-risk-mcp", "#!/bin/sh\n")
	require.NoError(t, os.Chmod(binary, 0755))

	out, err := e.run("setup", "register", "--client-config", clientConfig, "--binary", binary, "--with-endpoints")
	require.NoError(t, err)
	assert.Contains(t, out, "registered neuro-risk")

	out, err = e.run("setup", "status", "--client-config", clientConfig)
	require.NoError(t, err)
	assert.Contains(t, out, "NEURO_RISK_PARKINSON_URL")
	assert.Contains(t, out, "✓ ready")

	out, err = e.run("setup", "unregister", "--client-config", clientConfig)
	require.NoError(t, err)
	assert.Contains(t, out, "removed")

	out, err = e.run("setup", "status", "--client-config", clientConfig)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "registered false"), out)
}

func TestMigrate_BadDatabase(t *testing.T) {
	e := newEnv(t, failingBackend(t).URL, "none")

	_, err := e.run("migrate", "version")
	assert.Error(t, err)
}
