package history

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/neuro-risk-client/internal/domain"
)

func TestExportJSON(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	seed(t, store)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(ctx, store, &buf))

	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 6`)
	assert.Contains(t, buf.String(), `"riskPercentage"`)

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	require.Len(t, export.Records, 6)
	assert.Equal(t, "rec-06", export.Records[0].ID)
}

func TestExportJSON_Empty(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(context.Background(), store, &buf))
	assert.Contains(t, buf.String(), `"records": []`)
}

func TestImportJSON(t *testing.T) {
	source, err := NewMemoryStore(10)
	require.NoError(t, err)
	seed(t, source)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(ctx, source, &buf))

	target, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer target.Close()

	// an existing record with the same ID is left untouched
	existing := testRecord(2, domain.ConditionParkinson, domain.SourceRemote)
	existing.Result.RiskPercentage = 88
	require.NoError(t, target.Save(ctx, existing))

	imported, skipped, err := ImportJSON(ctx, target, &buf)
	require.NoError(t, err)
	assert.Equal(t, 5, imported)
	assert.Equal(t, 1, skipped)

	got, err := target.Get(ctx, "rec-02")
	require.NoError(t, err)
	assert.Equal(t, 88.0, got.Result.RiskPercentage)

	count, err := target.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestImportJSON_SkipsRecordsWithoutID(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)

	data := `{
		"version": "1.0",
		"count": 2,
		"records": [
			{"condition": "parkinson", "result": {"riskPercentage": 5.3}},
			{"id": "abc", "condition": "alzheimer", "result": {"riskPercentage": 57.2}}
		]
	}`

	imported, skipped, err := ImportJSON(context.Background(), store, bytes.NewReader([]byte(data)))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)
}

func TestImportJSON_InvalidJSON(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)

	_, _, err = ImportJSON(context.Background(), store, bytes.NewReader([]byte("{")))
	assert.Error(t, err)
}

func TestExportXLSX(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	seed(t, store)

	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(context.Background(), store, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 7)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "updrs.npdtot", rows[0][len(xlsxHeader)])
	assert.Equal(t, "rec-06", rows[1][0])
	assert.Equal(t, "Parkinson's", rows[1][1])
	assert.Equal(t, "fallback", rows[1][6])
}
