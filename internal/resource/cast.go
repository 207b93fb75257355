package resource

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CastError reports a value that does not fit its field's type.
type CastError struct {
	Field string
	Type  string
	Value any
}

func (e *CastError) Error() string {
	return fmt.Sprintf("invalid %s value for %s: %v", e.Type, e.Field, e.Value)
}

// Cast converts a query-string or decoded JSON value to the field's Go type.
// Array fields accept a list or a single element and always return []string.
func (f *Field) Cast(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	fail := func() (any, error) {
		return nil, &CastError{Field: f.Name, Type: f.Type, Value: v}
	}

	switch f.Type {
	case "", "string", "text":
		switch x := v.(type) {
		case string:
			return x, nil
		case float64, bool, json.Number:
			return fmt.Sprint(x), nil
		}
		return fail()
	case "int":
		switch x := v.(type) {
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return fail()
			}
			return n, nil
		case float64:
			if x != float64(int64(x)) {
				return fail()
			}
			return int64(x), nil
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case json.Number:
			n, err := x.Int64()
			if err != nil {
				return fail()
			}
			return n, nil
		}
		return fail()
	case "float":
		switch x := v.(type) {
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return fail()
			}
			return n, nil
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case json.Number:
			n, err := x.Float64()
			if err != nil {
				return fail()
			}
			return n, nil
		}
		return fail()
	case "bool":
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return fail()
			}
			return b, nil
		}
		return fail()
	case "time":
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
				if t, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
					return t.UTC(), nil
				}
			}
		}
		return fail()
	case "uuid":
		switch x := v.(type) {
		case string:
			id, err := uuid.Parse(strings.TrimSpace(x))
			if err != nil {
				return fail()
			}
			return id.String(), nil
		case uuid.UUID:
			return x.String(), nil
		case [16]byte:
			return uuid.UUID(x).String(), nil
		}
		return fail()
	case "array":
		switch x := v.(type) {
		case string:
			return []string{x}, nil
		case []string:
			return append([]string(nil), x...), nil
		case []any:
			out := make([]string, 0, len(x))
			for _, item := range x {
				s, ok := item.(string)
				if !ok {
					return fail()
				}
				out = append(out, s)
			}
			return out, nil
		}
		return fail()
	}
	return fail()
}

// CastElem converts a filter value for comparison. For array fields a single
// element is compared, so the element type (string) is returned.
func (f *Field) CastElem(v string) (any, error) {
	if f.Type == "array" {
		return v, nil
	}
	return f.Cast(v)
}
