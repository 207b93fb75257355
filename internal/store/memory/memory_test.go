package memory

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"

	"github.com/google/go-cmp/cmp"
)

func testRegistry(t *testing.T) *resource.Registry {
	t.Helper()
	bootcamps := &resource.Resource{
		Name:  "bootcamps",
		Table: "bootcamps",
		Fields: []*resource.Field{
			{Name: "name", Type: "string", Unique: true},
			{Name: "careers", Type: "array"},
			{Name: "averageCost", Type: "float"},
			{Name: "secret", Type: "string", Hidden: true},
		},
		Relations: map[string]*resource.Relation{
			"courses": {Type: resource.HasMany, Resource: "courses", FK: "bootcamp", Select: []string{"title"}},
		},
	}
	courses := &resource.Resource{
		Name:  "courses",
		Table: "courses",
		Fields: []*resource.Field{
			{Name: "title", Type: "string"},
			{Name: "weeks", Type: "int"},
			{Name: "bootcamp", Type: "uuid"},
		},
		Relations: map[string]*resource.Relation{
			"bootcamp": {Type: resource.BelongsTo, Resource: "bootcamps", FK: "bootcamp", Select: []string{"name"}},
		},
	}
	reg, err := resource.NewRegistry(bootcamps, courses)
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}
	return reg
}

func insert(t *testing.T, s *Store, res *resource.Resource, rec map[string]any) map[string]any {
	t.Helper()
	out, err := s.Insert(context.Background(), res, rec)
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	return out
}

func ids(items []map[string]any) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it["name"].(string)
	}
	return out
}

func seedBootcamps(t *testing.T, s *Store, res *resource.Resource) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, b := range []struct {
		name    string
		cost    float64
		careers []string
	}{
		{"Devworks", 10000, []string{"Web Development", "UI/UX"}},
		{"ModernTech", 8000, []string{"Web Development", "Mobile Development"}},
		{"Codemasters", 11000, []string{"Data Science", "Business"}},
		{"Devcentral", 8000, []string{"Business"}},
	} {
		insert(t, s, res, map[string]any{
			"name":        b.name,
			"averageCost": b.cost,
			"careers":     b.careers,
			"secret":      "s",
			"createdAt":   base.Add(time.Duration(i) * time.Hour),
		})
	}
}

func TestFind_OperatorsAndArrays(t *testing.T) {
	reg := testRegistry(t)
	res := reg.MustGet("bootcamps")
	s := New()
	seedBootcamps(t, s, res)
	ctx := context.Background()

	cases := []struct {
		params url.Values
		want   []string
	}{
		{url.Values{"averageCost[lte]": {"8000"}}, []string{"Devcentral", "ModernTech"}},
		{url.Values{"averageCost[gt]": {"8000"}, "averageCost[lt]": {"11000"}}, []string{"Devworks"}},
		{url.Values{"careers": {"Business"}}, []string{"Devcentral", "Codemasters"}},
		{url.Values{"careers[in]": {"UI/UX,Data Science"}}, []string{"Codemasters", "Devworks"}},
		{url.Values{"nope": {"1"}}, []string{}},
		{url.Values{"secret": {"s"}}, []string{}},
	}
	for _, c := range cases {
		items, err := s.Find(ctx, res, query.FindSpec{
			Filter: query.ParseFilter(c.params),
			Sort:   query.ParseDirectives(c.params).Sort,
		})
		if err != nil {
			t.Fatalf("Find(%v) error: %v", c.params, err)
		}
		if diff := cmp.Diff(c.want, ids(items)); diff != "" {
			t.Fatalf("Find(%v) mismatch (-want +got):\n%s", c.params, diff)
		}
	}
}

func TestFind_CastErrorOnBadValue(t *testing.T) {
	reg := testRegistry(t)
	res := reg.MustGet("bootcamps")
	s := New()
	seedBootcamps(t, s, res)

	_, err := s.Find(context.Background(), res, query.FindSpec{
		Filter: query.Filter{"averageCost": {{Op: query.OpGt, Value: "cheap"}}},
	})
	var ce *resource.CastError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CastError, got %v", err)
	}
}

func TestFind_SortStableAndProjection(t *testing.T) {
	reg := testRegistry(t)
	res := reg.MustGet("bootcamps")
	s := New()
	seedBootcamps(t, s, res)

	items, err := s.Find(context.Background(), res, query.FindSpec{
		Sort:   []query.SortKey{{Field: "averageCost"}, {Field: "unknown"}},
		Select: []string{"name", "secret"},
		Skip:   1,
		Limit:  2,
	})
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	// 8000 дважды: порядок вставки сохраняется
	if diff := cmp.Diff([]string{"Devcentral", "Devworks"}, ids(items)); diff != "" {
		t.Fatalf("order mismatch:\n%s", diff)
	}
	for _, it := range items {
		if _, ok := it["secret"]; ok {
			t.Fatalf("hidden field projected: %v", it)
		}
		if _, ok := it["id"]; !ok || len(it) != 2 {
			t.Fatalf("unexpected projection: %v", it)
		}
	}
}

func TestInsertUpdateDelete(t *testing.T) {
	reg := testRegistry(t)
	res := reg.MustGet("bootcamps")
	s := New()
	ctx := context.Background()

	a := insert(t, s, res, map[string]any{"name": "A"})
	b := insert(t, s, res, map[string]any{"name": "B"})

	if _, err := s.Insert(ctx, res, map[string]any{"name": "A"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.Update(ctx, res, b["id"].(string), map[string]any{"name": "A"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on rename, got %v", err)
	}

	got, err := s.Update(ctx, res, a["id"].(string), map[string]any{"averageCost": 5.0, "id": "x"})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got["averageCost"] != 5.0 || got["id"] != a["id"] {
		t.Fatalf("unexpected update result: %v", got)
	}

	if err := s.Delete(ctx, res, a["id"].(string)); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.Get(ctx, res, a["id"].(string)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, res, a["id"].(string)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	n, err := s.Count(ctx, res, query.Filter{})
	if err != nil || n != 1 {
		t.Fatalf("expected 1 record, got %d (%v)", n, err)
	}
	if err := s.DeleteAll(ctx, res); err != nil {
		t.Fatalf("DeleteAll error: %v", err)
	}
	if n, _ := s.Count(ctx, res, query.Filter{}); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}
}

func TestFindOne_IncludesHidden(t *testing.T) {
	reg := testRegistry(t)
	res := reg.MustGet("bootcamps")
	s := New()
	insert(t, s, res, map[string]any{"name": "A", "secret": "pw"})

	rec, err := s.FindOne(context.Background(), res, "name", "A")
	if err != nil {
		t.Fatalf("FindOne error: %v", err)
	}
	if rec["secret"] != "pw" {
		t.Fatalf("expected hidden field, got %v", rec)
	}
	if _, err := s.FindOne(context.Background(), res, "name", "Z"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFind_Populate(t *testing.T) {
	reg := testRegistry(t)
	bootcamps := reg.MustGet("bootcamps")
	courses := reg.MustGet("courses")
	s := New()
	ctx := context.Background()

	b := insert(t, s, bootcamps, map[string]any{"name": "Devworks"})
	empty := insert(t, s, bootcamps, map[string]any{"name": "Empty"})
	insert(t, s, courses, map[string]any{"title": "Front End", "weeks": int64(8), "bootcamp": b["id"]})
	insert(t, s, courses, map[string]any{"title": "Full Stack", "weeks": int64(12), "bootcamp": b["id"]})
	insert(t, s, courses, map[string]any{"title": "Orphan", "weeks": int64(1), "bootcamp": "6f9619ff-8b86-d011-b42d-00c04fc964ff"})

	list, err := s.Find(ctx, courses, query.FindSpec{
		Filter:   query.Filter{"weeks": {{Op: query.OpGte, Value: "1"}}},
		Sort:     []query.SortKey{{Field: "weeks"}},
		Populate: store.PopulateSpecs(courses, []string{"bootcamp"}),
	})
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if list[0]["bootcamp"] != nil {
		t.Fatalf("orphan course should populate nil, got %v", list[0]["bootcamp"])
	}
	want := map[string]any{"id": b["id"], "name": "Devworks"}
	if diff := cmp.Diff(want, list[1]["bootcamp"]); diff != "" {
		t.Fatalf("belongs_to mismatch:\n%s", diff)
	}

	camps, err := s.Find(ctx, bootcamps, query.FindSpec{
		Sort:     []query.SortKey{{Field: "name"}},
		Populate: store.PopulateSpecs(bootcamps, []string{"courses"}),
	})
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	got := camps[0]["courses"].([]map[string]any)
	if len(got) != 2 || got[0]["title"] != "Front End" || got[1]["title"] != "Full Stack" {
		t.Fatalf("has_many mismatch: %v", got)
	}
	if camps[1]["id"] != empty["id"] || len(camps[1]["courses"].([]map[string]any)) != 0 {
		t.Fatalf("expected empty course list, got %v", camps[1])
	}

	// select без fk отключает populate
	sel, err := s.Find(ctx, courses, query.FindSpec{
		Select:   []string{"title"},
		Populate: store.PopulateSpecs(courses, []string{"bootcamp"}),
	})
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	for _, it := range sel {
		if _, ok := it["bootcamp"]; ok {
			t.Fatalf("unexpected populated field: %v", it)
		}
	}
}

func TestBuildPage_AgainstMemory(t *testing.T) {
	reg := testRegistry(t)
	res := reg.MustGet("bootcamps")
	s := New()
	seedBootcamps(t, s, res)

	page, err := query.BuildPage(context.Background(),
		url.Values{"page": {"2"}, "limit": {"3"}}, store.Collection(s, res), query.Options{})
	if err != nil {
		t.Fatalf("BuildPage error: %v", err)
	}
	// по умолчанию -createdAt: на второй странице самый ранний
	if diff := cmp.Diff([]string{"Devworks"}, ids(page.Items)); diff != "" {
		t.Fatalf("page mismatch:\n%s", diff)
	}
	if page.TotalCount != 4 || page.Pagination.Next != nil || page.Pagination.Prev == nil {
		t.Fatalf("unexpected page meta: %+v", page)
	}
}
