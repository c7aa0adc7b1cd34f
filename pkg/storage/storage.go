package storage

import (
	"context"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by FindOne when no trace matches.
var ErrNotFound = errors.New("execution log not found")

// FindOptions control ordering and paging of Find.
type FindOptions struct {
	SortField     string
	SortDirection query.SortDirection
	Skip          int
	Limit         int
}

// FindOptionsFromPage converts a normalized page.
func FindOptionsFromPage(p query.Page) FindOptions {
	return FindOptions{
		SortField:     p.SortField,
		SortDirection: p.SortDirection,
		Skip:          p.Skip,
		Limit:         p.Limit,
	}
}

// AggregateSpec groups the traces matching Match by GroupBy, counting them and summing
// SumField (missing values count as zero).
type AggregateSpec struct {
	Match    query.Predicate `json:"match"`
	GroupBy  string          `json:"group_by"`
	SumField string          `json:"sum_field"`
}

// Group is one row of an aggregation.
type Group struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
	Sum   int64  `json:"sum"`
}

// TraceStore is the read side of the execution log collection.
type TraceStore interface {
	FindOne(ctx context.Context, p query.Predicate) (models.ExecutionLog, error)
	Find(ctx context.Context, p query.Predicate, opts FindOptions) ([]models.ExecutionLog, error)
	Count(ctx context.Context, p query.Predicate) (int64, error)
	Aggregate(ctx context.Context, spec AggregateSpec) ([]Group, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
