package query

import (
	"fmt"
	"strings"
	"time"
)

// Op is the operator of a Predicate node.
type Op string

const (
	OpAnd      Op = "and"
	OpOr       Op = "or"
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpContains Op = "contains" // case-insensitive literal substring
	OpRange    Op = "range"    // inclusive time range
)

// Predicate is a store-agnostic filter tree. Fields are dotted document paths using the
// JSON names of models.ExecutionLog; a path that crosses an array (e.g. "steps.message")
// matches when any element matches.
type Predicate struct {
	Op       Op          `json:"op"`
	Field    string      `json:"field,omitempty"`
	Value    interface{} `json:"value"`
	From     *time.Time  `json:"from,omitempty"`
	To       *time.Time  `json:"to,omitempty"`
	Children []Predicate `json:"children,omitempty"`
}

// All matches every document.
func All() Predicate {
	return Predicate{Op: OpAnd}
}

// IsAll reports whether p places no constraint.
func (p Predicate) IsAll() bool {
	return p.Op == OpAnd && len(p.Children) == 0
}

// And combines predicates conjunctively. Match-all children are dropped and a single
// remaining child is returned as is.
func And(ps ...Predicate) Predicate {
	children := make([]Predicate, 0, len(ps))
	for _, p := range ps {
		if p.IsAll() {
			continue
		}
		children = append(children, p)
	}
	if len(children) == 1 {
		return children[0]
	}
	return Predicate{Op: OpAnd, Children: children}
}

// Or combines predicates disjunctively. If any child matches everything, so does the result.
func Or(ps ...Predicate) Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	for _, p := range ps {
		if p.IsAll() {
			return All()
		}
	}
	return Predicate{Op: OpOr, Children: ps}
}

func Eq(field string, value interface{}) Predicate {
	return Predicate{Op: OpEq, Field: field, Value: value}
}

// Ne matches documents where field is missing or differs from value.
func Ne(field string, value interface{}) Predicate {
	return Predicate{Op: OpNe, Field: field, Value: value}
}

func Contains(field, substr string) Predicate {
	return Predicate{Op: OpContains, Field: field, Value: substr}
}

// Range matches field values within [from, to]. Either bound may be nil.
func Range(field string, from, to *time.Time) Predicate {
	return Predicate{Op: OpRange, Field: field, From: from, To: to}
}

// Walk calls fn for p and every descendant, depth first.
func (p Predicate) Walk(fn func(Predicate)) {
	fn(p)
	for _, c := range p.Children {
		c.Walk(fn)
	}
}

func (p Predicate) String() string {
	switch p.Op {
	case OpAnd, OpOr:
		if len(p.Children) == 0 {
			return "true"
		}
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " "+strings.ToUpper(string(p.Op))+" ") + ")"
	case OpEq:
		return fmt.Sprintf("%s = %v", p.Field, p.Value)
	case OpNe:
		return fmt.Sprintf("%s != %v", p.Field, p.Value)
	case OpContains:
		return fmt.Sprintf("%s ~ %q", p.Field, p.Value)
	case OpRange:
		from, to := "-inf", "+inf"
		if p.From != nil {
			from = p.From.UTC().Format(time.RFC3339)
		}
		if p.To != nil {
			to = p.To.UTC().Format(time.RFC3339)
		}
		return fmt.Sprintf("%s in [%s, %s]", p.Field, from, to)
	}
	return string(p.Op)
}
