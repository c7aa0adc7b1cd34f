package query

import (
	"fmt"
	"strings"
	"time"
)

// Evaluate reports whether doc, the generic JSON form of a trace, satisfies p. It follows
// the same semantics as the database adapters and backs the in-memory store.
func Evaluate(p Predicate, doc map[string]interface{}) bool {
	switch p.Op {
	case OpAnd:
		for _, c := range p.Children {
			if !Evaluate(c, doc) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range p.Children {
			if Evaluate(c, doc) {
				return true
			}
		}
		return false
	case OpEq:
		return anyEqual(Resolve(doc, p.Field), p.Value)
	case OpNe:
		return !anyEqual(Resolve(doc, p.Field), p.Value)
	case OpContains:
		needle := strings.ToLower(fmt.Sprint(p.Value))
		for _, v := range Resolve(doc, p.Field) {
			if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
				return true
			}
		}
		return false
	case OpRange:
		for _, v := range Resolve(doc, p.Field) {
			t, ok := asTime(v)
			if !ok {
				continue
			}
			if p.From != nil && t.Before(*p.From) {
				continue
			}
			if p.To != nil && t.After(*p.To) {
				continue
			}
			return true
		}
		return false
	}
	return false
}

// Resolve returns every value found at the dotted path. Arrays along the way are fanned
// out, and an array at the leaf is flattened.
func Resolve(doc interface{}, path string) []interface{} {
	return resolve(doc, strings.Split(path, "."))
}

func resolve(v interface{}, parts []string) []interface{} {
	if arr, ok := v.([]interface{}); ok {
		var out []interface{}
		for _, e := range arr {
			out = append(out, resolve(e, parts)...)
		}
		return out
	}
	if len(parts) == 0 {
		if v == nil {
			return nil
		}
		return []interface{}{v}
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	next, ok := m[parts[0]]
	if !ok {
		return nil
	}
	return resolve(next, parts[1:])
}

func anyEqual(values []interface{}, want interface{}) bool {
	for _, v := range values {
		if equal(v, want) {
			return true
		}
	}
	return false
}

func equal(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		if bf, ok := toFloat(b); ok {
			return av == bf
		}
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

// Compare orders two resolved sort keys. Missing values sort first.
func Compare(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if at, ok := asTime(a); ok {
		if bt, ok := asTime(b); ok {
			return at.Compare(bt)
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
