package store

import (
	"context"
	"fmt"
	"slices"

	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"
)

// Attach expands the requested relations on items in place with one extra
// read per relation against st.
//
// belongs_to replaces nothing: the related record is placed under the
// relation name (which usually equals the fk field), or nil when it is gone.
// has_many places a list of related records, possibly empty.
func Attach(ctx context.Context, st Store, res *resource.Resource, items []map[string]any, selected []string, pops []query.Populate) error {
	if len(items) == 0 {
		return nil
	}
	for _, p := range pops {
		rel, ok := res.Relation(p.Field)
		if !ok || rel.Target() == nil {
			return fmt.Errorf("populate %s.%s: unknown relation", res.Name, p.Field)
		}
		sel := p.Select
		if len(sel) == 0 {
			sel = rel.Select
		}

		switch rel.Type {
		case resource.BelongsTo:
			if len(selected) > 0 && !slices.Contains(selected, rel.FK) {
				continue
			}
			ids := collectStrings(items, rel.FK)
			byID := map[string]map[string]any{}
			if len(ids) > 0 {
				related, err := st.Find(ctx, rel.Target(), query.FindSpec{
					Filter: query.Filter{resource.IDField: {{Op: query.OpIn, Values: ids}}},
					Select: sel,
				})
				if err != nil {
					return fmt.Errorf("populate %s.%s: %w", res.Name, p.Field, err)
				}
				for _, r := range related {
					if id, ok := r[resource.IDField].(string); ok {
						byID[id] = r
					}
				}
			}
			for _, item := range items {
				id, _ := item[rel.FK].(string)
				if r, ok := byID[id]; ok {
					item[p.Field] = r
				} else {
					item[p.Field] = nil
				}
			}

		case resource.HasMany:
			if len(selected) > 0 && !slices.Contains(selected, p.Field) {
				continue
			}
			ids := collectStrings(items, resource.IDField)
			if len(sel) > 0 && !slices.Contains(sel, rel.FK) {
				sel = append(append([]string(nil), sel...), rel.FK)
			}
			related, err := st.Find(ctx, rel.Target(), query.FindSpec{
				Filter: query.Filter{rel.FK: {{Op: query.OpIn, Values: ids}}},
				Select: sel,
				Sort:   []query.SortKey{{Field: resource.CreatedAtField}},
			})
			if err != nil {
				return fmt.Errorf("populate %s.%s: %w", res.Name, p.Field, err)
			}
			grouped := map[string][]map[string]any{}
			for _, r := range related {
				fk, _ := r[rel.FK].(string)
				grouped[fk] = append(grouped[fk], r)
			}
			for _, item := range items {
				id, _ := item[resource.IDField].(string)
				list := grouped[id]
				if list == nil {
					list = []map[string]any{}
				}
				item[p.Field] = list
			}

		default:
			return fmt.Errorf("populate %s.%s: unsupported relation type %s", res.Name, p.Field, rel.Type)
		}
	}
	return nil
}

func collectStrings(items []map[string]any, field string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item[field].(string)
		if !ok || s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
