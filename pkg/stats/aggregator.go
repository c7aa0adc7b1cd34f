package stats

import (
	"context"
	"math"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
)

// Stats summarises a set of traces.
type Stats struct {
	Total           int64 `json:"total"`
	Running         int64 `json:"running"`
	Completed       int64 `json:"completed"`
	Failed          int64 `json:"failed"`
	AvgDurationMs   int64 `json:"avgDurationMs"`
	TotalDurationMs int64 `json:"totalDurationMs"`
}

// Aggregator computes Stats with a single aggregation call.
type Aggregator struct {
	store storage.TraceStore
}

func NewAggregator(store storage.TraceStore) *Aggregator {
	return &Aggregator{store: store}
}

// Spec is the aggregation issued for p.
func Spec(p query.Predicate) storage.AggregateSpec {
	return storage.AggregateSpec{
		Match:    p,
		GroupBy:  query.FieldStatus,
		SumField: query.FieldTotalDurationMs,
	}
}

// Aggregate counts the traces matching p per status and averages their duration, treating
// a missing duration as zero. No match yields all zeros.
func (a *Aggregator) Aggregate(ctx context.Context, p query.Predicate) (Stats, error) {
	groups, err := a.store.Aggregate(ctx, Spec(p))
	if err != nil {
		return Stats{}, err
	}
	return FromGroups(groups), nil
}

// FromGroups folds per-status groups into Stats.
func FromGroups(groups []storage.Group) Stats {
	var s Stats
	for _, g := range groups {
		s.Total += g.Count
		s.TotalDurationMs += g.Sum
		switch models.ExecutionStatus(g.Key) {
		case models.RunningExecutionStatus:
			s.Running += g.Count
		case models.CompletedExecutionStatus:
			s.Completed += g.Count
		case models.FailedExecutionStatus:
			s.Failed += g.Count
		}
	}
	if s.Total > 0 {
		s.AvgDurationMs = int64(math.Round(float64(s.TotalDurationMs) / float64(s.Total)))
	}
	return s
}
