package resource

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationErrors collects every failed field rule of a payload.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return strings.Join(v, ", ")
}

// Decode turns a client payload into a storable record. Unknown and
// read-only keys are dropped. With partial=false (create) required fields
// must be present and defaults are applied.
func (r *Resource) Decode(payload map[string]any, partial bool) (map[string]any, error) {
	out := make(map[string]any, len(payload))
	var errs ValidationErrors

	for _, f := range r.Fields {
		raw, present := payload[f.Name]
		if f.ReadOnly {
			present = false
		}
		if !present || raw == nil {
			if partial {
				continue
			}
			if f.Default != nil {
				raw = f.Default
			} else {
				if f.Required {
					errs = append(errs, requiredMessage(f))
				}
				continue
			}
		}

		val, err := f.Cast(raw)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if s, ok := val.(string); ok {
			if f.Required && strings.TrimSpace(s) == "" {
				errs = append(errs, requiredMessage(f))
				continue
			}
			if f.MaxLength > 0 && len([]rune(s)) > f.MaxLength {
				errs = append(errs, fmt.Sprintf("%s can not be more than %d characters", f.Name, f.MaxLength))
				continue
			}
			if f.MinLength > 0 && len([]rune(s)) < f.MinLength {
				errs = append(errs, fmt.Sprintf("%s must be at least %d characters", f.Name, f.MinLength))
				continue
			}
			if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
				errs = append(errs, fmt.Sprintf("%s is not a valid value for %s", s, f.Name))
				continue
			}
		}
		if list, ok := val.([]string); ok && len(f.Enum) > 0 {
			for _, s := range list {
				if !slices.Contains(f.Enum, s) {
					errs = append(errs, fmt.Sprintf("%s is not a valid value for %s", s, f.Name))
				}
			}
		}
		out[f.Name] = val
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func requiredMessage(f *Field) string {
	if f.Message != "" {
		return f.Message
	}
	return "Please add a " + f.Name
}
