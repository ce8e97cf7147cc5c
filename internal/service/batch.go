package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
)

// BatchItem is one independent submission of a batch run
type BatchItem struct {
	Name      string                 `json:"name" yaml:"name"`
	Condition domain.ConditionKind   `json:"condition" yaml:"condition"`
	Features  map[string]interface{} `json:"features" yaml:"features"`
}

// BatchResult pairs a batch item with its outcome. Exactly one of Record and
// Err is set.
type BatchResult struct {
	Item   BatchItem
	Record *history.Record
	Err    error
}

// AssessBatch runs every item as its own assessment with at most limit in
// flight. A failing item never stops the others. Results keep input order.
func (r *Recorder) AssessBatch(ctx context.Context, items []BatchItem, limit int) []BatchResult {
	results := make([]BatchResult, len(items))

	g, gCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			rec, err := r.AssessAndRecord(gCtx, item.Condition, item.Features)
			results[i] = BatchResult{Item: item, Record: rec, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
