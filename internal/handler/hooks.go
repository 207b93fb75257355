package handler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"DevcampAPI/internal/auth"
	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"
)

// DefaultHooks wires the per-resource write rules of the bundled resources.
func DefaultHooks(reg *resource.Registry, st store.Store) map[string]Hooks {
	hooks := map[string]Hooks{}
	bootcamps, ok := reg.Get("bootcamps")
	if !ok {
		return hooks
	}

	hooks["bootcamps"] = Hooks{
		BeforeWrite: func(ctx context.Context, rec, before map[string]any) error {
			if name, ok := rec["name"].(string); ok {
				rec["slug"] = slugify(name)
				if rec["slug"] == "" {
					rec["slug"] = recordID(rec, before)
				}
			}
			if before != nil || auth.UserRole(ctx) == auth.RoleAdmin {
				return nil
			}
			// publisher может опубликовать только один bootcamp
			uid := auth.UserID(ctx)
			n, err := st.Count(ctx, bootcamps, query.Filter{bootcamps.Owner: {{Op: query.OpEq, Value: uid}}})
			if err != nil {
				return err
			}
			if n > 0 {
				return NewError(http.StatusBadRequest, fmt.Sprintf("The user with ID %s has already published a bootcamp", uid))
			}
			return nil
		},
	}

	if courses, ok := reg.Get("courses"); ok {
		hooks["courses"] = Hooks{
			AfterWrite: averageInto(st, courses, "tuition", bootcamps, "averageCost", func(v float64) float64 {
				return math.Ceil(v/10) * 10
			}),
		}
	}

	if reviews, ok := reg.Get("reviews"); ok {
		hooks["reviews"] = Hooks{
			BeforeWrite: func(ctx context.Context, rec, before map[string]any) error {
				if rating, ok := rec["rating"].(int64); ok && (rating < 1 || rating > 10) {
					return resource.ValidationErrors{"Please add a rating between 1 and 10"}
				}
				if before != nil {
					return nil
				}
				bootcampID, _ := rec["bootcamp"].(string)
				n, err := st.Count(ctx, reviews, query.Filter{
					"bootcamp": {{Op: query.OpEq, Value: bootcampID}},
					"user":     {{Op: query.OpEq, Value: auth.UserID(ctx)}},
				})
				if err != nil {
					return err
				}
				if n > 0 {
					return NewError(http.StatusBadRequest, "You have already reviewed this bootcamp")
				}
				return nil
			},
			AfterWrite: averageInto(st, reviews, "rating", bootcamps, "averageRating", nil),
		}
	}

	hooks["users"] = Hooks{
		BeforeWrite: func(_ context.Context, rec, _ map[string]any) error {
			return hashPasswordField(rec)
		},
	}
	return hooks
}

// averageInto recomputes target.field of the parent as the mean of
// child.from over the parent's children. An empty set clears the field.
func averageInto(st store.Store, child *resource.Resource, from string, target *resource.Resource, field string,
	round func(float64) float64) func(context.Context, map[string]any) error {
	fk := child.Parent.Field
	return func(ctx context.Context, rec map[string]any) error {
		parentID, _ := rec[fk].(string)
		if parentID == "" {
			return nil
		}
		items, err := st.Find(ctx, child, query.FindSpec{
			Filter: query.Filter{fk: {{Op: query.OpEq, Value: parentID}}},
			Select: []string{from},
		})
		if err != nil {
			return fmt.Errorf("average %s.%s: %w", child.Name, from, err)
		}

		var sum float64
		var n int
		for _, it := range items {
			switch v := it[from].(type) {
			case int64:
				sum += float64(v)
				n++
			case float64:
				sum += v
				n++
			}
		}
		var avg any
		if n > 0 {
			mean := sum / float64(n)
			if round != nil {
				mean = round(mean)
			}
			avg = mean
		}
		_, err = st.Update(ctx, target, parentID, map[string]any{field: avg})
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("update %s.%s: %w", target.Name, field, err)
		}
		return nil
	}
}

func hashPasswordField(rec map[string]any) error {
	pw, ok := rec["password"].(string)
	if !ok {
		return nil
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	rec["password"] = hash
	return nil
}

// recordID returns the id of the record being written, assigning one on create.
func recordID(rec, before map[string]any) string {
	if before != nil {
		id, _ := before[resource.IDField].(string)
		return id
	}
	id, _ := rec[resource.IDField].(string)
	if id == "" {
		id = uuid.NewString()
		rec[resource.IDField] = id
	}
	return id
}

// translit covers the Russian alphabet, ъ and ь are dropped.
// Other letters outside a-z become separators.
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch",
	'ы': "y", 'э': "e", 'ю': "yu", 'я': "ya",
}

// slugify creates a URL-friendly slug from a name
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	dash := false
	for _, r := range slug {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case translit[r] != "":
			b.WriteString(translit[r])
			dash = false
		case r == 'ъ' || r == 'ь':
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
