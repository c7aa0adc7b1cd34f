package storage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
)

const executionLogsTable = "execution_logs"

// pgColumns are the document paths promoted to typed columns. Every other path is read from
// the jsonb document column.
var pgColumns = map[string]string{
	query.FieldID:              "id",
	query.FieldExecutionID:     "execution_id",
	query.FieldConversationID:  "conversation_id",
	query.FieldBusinessID:      "business_id",
	query.FieldContext:         "context",
	query.FieldStatus:          "status",
	query.FieldStartTime:       "start_time",
	query.FieldEndTime:         "end_time",
	query.FieldTotalDurationMs: "total_duration_ms",
	query.FieldCreatedAt:       "created_at",
	query.FieldOriginalMessage: "original_message",
}

var pgSortColumns = map[string]bool{
	"start_time":        true,
	"end_time":          true,
	"total_duration_ms": true,
	"created_at":        true,
}

var pathSegment = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

const stepsPrefix = "steps."

// pgWhere accumulates positional arguments while rendering a predicate as a SQL boolean
// expression.
type pgWhere struct {
	args []interface{}
}

func (w *pgWhere) arg(v interface{}) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *pgWhere) render(p query.Predicate) (string, error) {
	switch p.Op {
	case query.OpAnd, query.OpOr:
		if len(p.Children) == 0 {
			if p.Op == query.OpOr {
				return "FALSE", nil
			}
			return "TRUE", nil
		}
		parts := make([]string, 0, len(p.Children))
		for _, c := range p.Children {
			sql, err := w.render(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
		return "(" + strings.Join(parts, " "+strings.ToUpper(string(p.Op))+" ") + ")", nil
	}

	if strings.HasPrefix(p.Field, stepsPrefix) {
		return w.renderSteps(p)
	}
	if col, ok := pgColumns[p.Field]; ok {
		return w.leaf(p, col, true)
	}
	expr, err := jsonbText("document", p.Field)
	if err != nil {
		return "", err
	}
	return w.leaf(p, expr, false)
}

// renderSteps matches a predicate on a step field against every element of the steps
// array. Ne holds only when no element is equal.
func (w *pgWhere) renderSteps(p query.Predicate) (string, error) {
	expr, err := jsonbText("step", strings.TrimPrefix(p.Field, stepsPrefix))
	if err != nil {
		return "", err
	}
	quantifier := "EXISTS"
	inner := p
	if p.Op == query.OpNe {
		quantifier = "NOT EXISTS"
		inner.Op = query.OpEq
	}
	cond, err := w.leaf(inner, expr, false)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (SELECT 1 FROM jsonb_array_elements(CASE jsonb_typeof(document->'steps') WHEN 'array' THEN document->'steps' ELSE '[]'::jsonb END) AS step WHERE %s)",
		quantifier, cond), nil
}

func (w *pgWhere) leaf(p query.Predicate, expr string, typed bool) (string, error) {
	switch p.Op {
	case query.OpEq:
		return fmt.Sprintf("%s = %s", expr, w.arg(pgValue(p.Value, typed))), nil
	case query.OpNe:
		return fmt.Sprintf("(%s IS NULL OR %s <> %s)", expr, expr, w.arg(pgValue(p.Value, typed))), nil
	case query.OpContains:
		s, ok := p.Value.(string)
		if !ok {
			return "", errors.Errorf("contains on %s needs a string, got %T", p.Field, p.Value)
		}
		return fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, expr, w.arg("%"+escapeLike(s)+"%")), nil
	case query.OpRange:
		if !typed {
			return "", errors.Errorf("range on %s is not supported", p.Field)
		}
		var parts []string
		if p.From != nil {
			parts = append(parts, fmt.Sprintf("%s >= %s", expr, w.arg(*p.From)))
		}
		if p.To != nil {
			parts = append(parts, fmt.Sprintf("%s <= %s", expr, w.arg(*p.To)))
		}
		if len(parts) == 0 {
			return "TRUE", nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	}
	return "", errors.Errorf("unsupported predicate operator %q", p.Op)
}

// jsonbText renders the text value at a dotted path below a jsonb expression.
func jsonbText(root, path string) (string, error) {
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if !pathSegment.MatchString(s) {
			return "", errors.Errorf("invalid field path %q", path)
		}
	}
	return fmt.Sprintf("(%s #>> '{%s}')", root, strings.Join(segments, ",")), nil
}

// pgValue converts a comparison value. jsonb text extraction yields booleans as "true" and
// numbers in their JSON form.
func pgValue(v interface{}, typed bool) interface{} {
	if typed {
		return v
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func pgOrderBy(opts storage.FindOptions) string {
	col := opts.SortField
	if !pgSortColumns[col] {
		col = pgColumns[query.DefaultSortField]
	}
	if opts.SortDirection == query.Ascending {
		return fmt.Sprintf("%s ASC NULLS FIRST, id ASC", col)
	}
	return fmt.Sprintf("%s DESC NULLS LAST, id ASC", col)
}

// pgAggregate renders the grouping query of spec.
func pgAggregate(spec storage.AggregateSpec) (string, []interface{}, error) {
	groupExpr, ok := pgColumns[spec.GroupBy]
	if !ok {
		var err error
		if groupExpr, err = jsonbText("document", spec.GroupBy); err != nil {
			return "", nil, err
		}
	}
	sumExpr := "0"
	if spec.SumField != "" {
		col, ok := pgColumns[spec.SumField]
		if !ok {
			return "", nil, errors.Errorf("cannot sum %s", spec.SumField)
		}
		sumExpr = fmt.Sprintf("COALESCE(SUM(%s), 0)::bigint", col)
	}
	w := &pgWhere{}
	where, err := w.render(spec.Match)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT COALESCE(%s, '') AS key, COUNT(*) AS count, %s AS sum FROM %s WHERE %s GROUP BY %s",
		groupExpr, sumExpr, executionLogsTable, where, groupExpr)
	return sql, w.args, nil
}
