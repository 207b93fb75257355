package memory

import (
	"cmp"
	"slices"
	"time"

	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"
)

// matches reports whether rec satisfies every condition of filter.
// A filter on an undeclared or hidden field matches nothing.
func matches(res *resource.Resource, rec map[string]any, filter query.Filter) (bool, error) {
	for name, conds := range filter {
		f, ok := res.Field(name)
		if !ok || f.Hidden {
			return false, nil
		}
		for _, c := range conds {
			ok, err := matchCondition(f, rec[name], c)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

func matchCondition(f *resource.Field, have any, c query.Condition) (bool, error) {
	if c.Op == query.OpIn {
		for _, raw := range c.Values {
			want, err := f.CastElem(raw)
			if err != nil {
				return false, err
			}
			if elemMatch(have, func(v any) bool { return compare(v, want) == 0 }) {
				return true, nil
			}
		}
		return false, nil
	}

	want, err := f.CastElem(c.Value)
	if err != nil {
		return false, err
	}
	return elemMatch(have, func(v any) bool {
		if v == nil {
			return false
		}
		n := compare(v, want)
		switch c.Op {
		case query.OpGt:
			return n > 0
		case query.OpGte:
			return n >= 0
		case query.OpLt:
			return n < 0
		case query.OpLte:
			return n <= 0
		default:
			return n == 0
		}
	}), nil
}

// elemMatch applies pred to a scalar, or to any element of an array value.
func elemMatch(have any, pred func(any) bool) bool {
	if list, ok := have.([]string); ok {
		return slices.ContainsFunc(list, func(s string) bool { return pred(s) })
	}
	return pred(have)
}

// compare orders values of the same field type; nil sorts first.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y)
		case float64:
			return cmp.Compare(float64(x), y)
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y)
		case int64:
			return cmp.Compare(x, float64(y))
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case []string:
		if y, ok := b.([]string); ok {
			return slices.Compare(x, y)
		}
	}
	return -1
}
