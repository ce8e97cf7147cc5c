package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
	"github.com/neuro-risk-client/internal/validation"
)

// FeatureAssessor assesses an already validated feature set
type FeatureAssessor interface {
	AssessFeatures(ctx context.Context, features domain.FeatureSet) (*domain.RiskAssessmentResult, error)
}

// Recorder wraps an assessor and saves every returned result to a history
// store. Recording failures are logged and never change the result.
type Recorder struct {
	assessor FeatureAssessor
	store    history.Store
	logger   *logrus.Logger
	metrics  *Metrics
}

// NewRecorder creates a recorder. A nil store disables recording.
func NewRecorder(assessor FeatureAssessor, store history.Store, logger *logrus.Logger, metrics *Metrics) *Recorder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Recorder{
		assessor: assessor,
		store:    store,
		logger:   logger,
		metrics:  metrics,
	}
}

// Assess implements domain.RiskAssessor
func (r *Recorder) Assess(ctx context.Context, kind domain.ConditionKind, raw map[string]interface{}) (*domain.RiskAssessmentResult, error) {
	rec, err := r.AssessAndRecord(ctx, kind, raw)
	if err != nil {
		return nil, err
	}
	return &rec.Result, nil
}

// AssessAndRecord returns the stored record so callers can report its ID.
// When recording fails the record is still returned, with its ID unsaved.
func (r *Recorder) AssessAndRecord(ctx context.Context, kind domain.ConditionKind, raw map[string]interface{}) (*history.Record, error) {
	features, err := validation.Parse(kind, raw)
	if err != nil {
		r.metrics.observeValidationFailure(kind)
		return nil, err
	}

	result, err := r.assessor.AssessFeatures(ctx, features)
	if err != nil {
		return nil, err
	}

	rec := history.NewRecord(kind, *result, features)
	if r.store == nil {
		return rec, nil
	}

	// saved even if the caller has cancelled since the result was produced
	if err := r.store.Save(context.WithoutCancel(ctx), rec); err != nil {
		r.metrics.observeHistoryFailure()
		r.logger.WithError(err).WithFields(logrus.Fields{
			"condition": kind,
			"record_id": rec.ID,
		}).Warn("Failed to record assessment")
	}
	return rec, nil
}

// Store returns the underlying history store, which may be nil
func (r *Recorder) Store() history.Store {
	return r.store
}
