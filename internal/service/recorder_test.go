package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
)

type failingStore struct {
	history.Store
}

func (failingStore) Save(context.Context, *history.Record) error {
	return errors.New("disk full")
}

func TestRecorder_SavesResult(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Predict", mock.Anything, mock.Anything).
		Return(nil, &domain.GatewayError{Kind: domain.GatewayTimeout})

	store, err := history.NewMemoryStore(10)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	recorder := NewRecorder(newTestClient(gw), store, logger, nil)

	rec, err := recorder.AssessAndRecord(context.Background(), domain.ConditionParkinson, parkinsonPayload())
	require.NoError(t, err)

	saved, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionParkinson, saved.Condition)
	assert.Equal(t, 5.3, saved.Result.RiskPercentage)
	assert.Equal(t, domain.SourceFallback, saved.Result.Source)
	assert.Equal(t, 3.0, saved.Features["updrs.npdtot"])
}

func TestRecorder_ValidationErrorNotRecorded(t *testing.T) {
	gw := new(mockGateway)
	store, err := history.NewMemoryStore(10)
	require.NoError(t, err)
	recorder := NewRecorder(newTestClient(gw), store, nil, nil)

	_, err = recorder.Assess(context.Background(), domain.ConditionAlzheimer, map[string]interface{}{})
	assert.True(t, domain.IsValidationError(err))

	count, err := store.Count(context.Background(), history.Filter{})
	require.NoError(t, err)
	assert.Zero(t, count)
	gw.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestRecorder_StoreFailureKeepsResult(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Predict", mock.Anything, mock.Anything).
		Return(&domain.RawPrediction{RiskPercentage: 35}, nil)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	logger, hook := test.NewNullLogger()
	recorder := NewRecorder(newTestClient(gw), failingStore{}, logger, metrics)

	result, err := recorder.Assess(context.Background(), domain.ConditionParkinson, parkinsonPayload())

	require.NoError(t, err)
	assert.Equal(t, 35.0, result.RiskPercentage)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.historyFailures))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Failed to record assessment", hook.LastEntry().Message)
}

func TestRecorder_NilStore(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Predict", mock.Anything, mock.Anything).
		Return(&domain.RawPrediction{RiskPercentage: 35}, nil)

	recorder := NewRecorder(newTestClient(gw), nil, nil, nil)

	rec, err := recorder.AssessAndRecord(context.Background(), domain.ConditionParkinson, parkinsonPayload())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Nil(t, recorder.Store())
}
