// Package history stores completed risk assessments so clinicians can review
// past results. It sits outside the scoring path: assessments are recorded
// after they have been returned by the assessment client.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/neuro-risk-client/internal/domain"
)

// ErrNotFound is returned by Get and Delete for unknown record IDs.
var ErrNotFound = errors.New("assessment record not found")

// Record is one stored assessment.
type Record struct {
	ID        string                      `json:"id"`
	Condition domain.ConditionKind        `json:"condition"`
	Result    domain.RiskAssessmentResult `json:"result"`
	Features  map[string]float64          `json:"features,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
}

// NewRecord builds a record with a fresh ID for a returned result.
func NewRecord(kind domain.ConditionKind, result domain.RiskAssessmentResult, features domain.FeatureSet) *Record {
	rec := &Record{
		ID:        uuid.NewString(),
		Condition: kind,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	if features != nil {
		rec.Features = features.Values()
	}
	return rec
}

// Filter narrows List and Count. Zero fields match everything.
type Filter struct {
	Condition domain.ConditionKind
	Source    domain.ResultSource
	Since     time.Time
	Limit     int
	Offset    int
}

// Matches reports whether rec passes the filter, ignoring Limit and Offset.
func (f Filter) Matches(rec *Record) bool {
	if f.Condition != "" && rec.Condition != f.Condition {
		return false
	}
	if f.Source != "" && rec.Result.Source != f.Source {
		return false
	}
	if !f.Since.IsZero() && rec.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// DefaultListLimit applies when a Filter has no Limit.
const DefaultListLimit = 100

// maxExportLimit is the maximum number of records exported at once.
const maxExportLimit = 1000000

// Store defines the interface for assessment history storage.
type Store interface {
	// Save stores a record, replacing any record with the same ID.
	Save(ctx context.Context, rec *Record) error

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns matching records, newest first.
	List(ctx context.Context, filter Filter) ([]*Record, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, filter Filter) (int64, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}
