package storage

import (
	"regexp"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const mongoIDField = "_id"

// matchNothing stands in for an empty $or, which MongoDB rejects.
var matchNothing = bson.D{{Key: mongoIDField, Value: bson.D{{Key: "$exists", Value: false}}}}

// mongoFilter translates a predicate into a MongoDB query document. Dotted paths are passed
// through unchanged since MongoDB already matches a path crossing an array when any element
// matches.
func mongoFilter(p query.Predicate) (bson.D, error) {
	switch p.Op {
	case query.OpAnd, query.OpOr:
		if len(p.Children) == 0 {
			if p.Op == query.OpOr {
				return matchNothing, nil
			}
			return bson.D{}, nil
		}
		children := make(bson.A, 0, len(p.Children))
		for _, c := range p.Children {
			f, err := mongoFilter(c)
			if err != nil {
				return nil, err
			}
			children = append(children, f)
		}
		return bson.D{{Key: "$" + string(p.Op), Value: children}}, nil
	case query.OpEq:
		if p.Field == query.FieldID {
			return mongoIDFilter(p.Value), nil
		}
		return bson.D{{Key: p.Field, Value: p.Value}}, nil
	case query.OpNe:
		return bson.D{{Key: mongoField(p.Field), Value: bson.D{{Key: "$ne", Value: p.Value}}}}, nil
	case query.OpContains:
		s, ok := p.Value.(string)
		if !ok {
			return nil, errors.Errorf("contains on %s needs a string, got %T", p.Field, p.Value)
		}
		return bson.D{{Key: mongoField(p.Field), Value: primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}}}, nil
	case query.OpRange:
		bounds := bson.D{}
		if p.From != nil {
			bounds = append(bounds, bson.E{Key: "$gte", Value: *p.From})
		}
		if p.To != nil {
			bounds = append(bounds, bson.E{Key: "$lte", Value: *p.To})
		}
		if len(bounds) == 0 {
			return bson.D{}, nil
		}
		return bson.D{{Key: mongoField(p.Field), Value: bounds}}, nil
	}
	return nil, errors.Errorf("unsupported predicate operator %q", p.Op)
}

func mongoField(field string) string {
	if field == query.FieldID {
		return mongoIDField
	}
	return field
}

// mongoIDFilter matches _id stored either as an ObjectID or as a plain string.
func mongoIDFilter(v interface{}) bson.D {
	s, ok := v.(string)
	if !ok {
		return bson.D{{Key: mongoIDField, Value: v}}
	}
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return bson.D{{Key: mongoIDField, Value: bson.D{{Key: "$in", Value: bson.A{oid, s}}}}}
	}
	return bson.D{{Key: mongoIDField, Value: s}}
}

// mongoSort orders by the requested field, breaking ties by _id ascending.
func mongoSort(opts storage.FindOptions) bson.D {
	field := opts.SortField
	if field == "" {
		field = query.DefaultSortField
	}
	dir := int(opts.SortDirection)
	if dir == 0 {
		dir = int(query.Descending)
	}
	return bson.D{{Key: mongoField(field), Value: dir}, {Key: mongoIDField, Value: 1}}
}

// mongoAggregatePipeline groups the matched traces by one field, counting them and summing
// another with missing values taken as zero.
func mongoAggregatePipeline(spec storage.AggregateSpec) ([]bson.D, error) {
	match, err := mongoFilter(spec.Match)
	if err != nil {
		return nil, err
	}
	group := bson.D{
		{Key: "_id", Value: "$" + mongoField(spec.GroupBy)},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}
	if spec.SumField != "" {
		group = append(group, bson.E{Key: "sum", Value: bson.D{{Key: "$sum", Value: bson.D{
			{Key: "$ifNull", Value: bson.A{"$" + mongoField(spec.SumField), 0}},
		}}}})
	}
	return []bson.D{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: group}},
	}, nil
}
