package postgres

import (
	"strings"
	"testing"

	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"
)

func bootcampsResource() *resource.Resource {
	return &resource.Resource{
		Name:  "bootcamps",
		Table: "bootcamps",
		Fields: []*resource.Field{
			{Name: "name", Type: "string"},
			{Name: "careers", Type: "array"},
			{Name: "averageCost", Column: "average_cost", Type: "float"},
			{Name: "housing", Type: "bool"},
			{Name: "password", Type: "string", Hidden: true},
		},
	}
}

func TestBuildIndexQuery_WhereOrderLimit(t *testing.T) {
	res := bootcampsResource()
	spec := query.FindSpec{
		Filter: query.Filter{
			"averageCost": {{Op: query.OpGte, Value: "1000"}, {Op: query.OpLt, Value: "9000"}},
			"housing":     {{Op: query.OpEq, Value: "true"}},
		},
		Select: []string{"name", "password", "bogus"},
		Sort:   []query.SortKey{{Field: "averageCost", Desc: true}, {Field: "bogus"}},
		Skip:   10,
		Limit:  5,
	}

	sb, fields, err := BuildIndexQuery(res, spec)
	if err != nil {
		t.Fatalf("BuildIndexQuery error: %v", err)
	}
	sql, args, err := sb.ToSql()
	if err != nil {
		t.Fatalf("ToSql error: %v", err)
	}

	for _, want := range []string{
		"SELECT main.id, main.name FROM bootcamps AS main",
		"main.average_cost >= $1",
		"main.average_cost < $2",
		"main.housing = $3",
		"ORDER BY main.average_cost DESC, main.id ASC",
		"LIMIT 5 OFFSET 10",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected %q in SQL:\n%s", want, sql)
		}
	}
	if strings.Contains(sql, "password") || strings.Contains(sql, "bogus") {
		t.Fatalf("hidden or unknown fields leaked into SQL:\n%s", sql)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 projected fields, got %d", len(fields))
	}
	if len(args) != 3 || args[0] != 1000.0 || args[1] != 9000.0 || args[2] != true {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestBuildIndexQuery_ArrayAndIn(t *testing.T) {
	res := bootcampsResource()
	spec := query.FindSpec{
		Filter: query.Filter{
			"careers": {{Op: query.OpIn, Values: []string{"Business", "UI/UX"}}},
			"name":    {{Op: query.OpIn, Values: []string{"A", "B"}}},
		},
	}
	sb, _, err := BuildIndexQuery(res, spec)
	if err != nil {
		t.Fatalf("BuildIndexQuery error: %v", err)
	}
	sql, _, _ := sb.ToSql()
	if !strings.Contains(sql, "main.careers && $1::text[]") {
		t.Fatalf("expected array overlap in SQL:\n%s", sql)
	}
	if !strings.Contains(sql, "main.name IN ($2,$3)") {
		t.Fatalf("expected IN list in SQL:\n%s", sql)
	}

	sb, _, _ = BuildIndexQuery(res, query.FindSpec{
		Filter: query.Filter{"careers": {{Op: query.OpEq, Value: "Business"}}},
	})
	sql, _, _ = sb.ToSql()
	if !strings.Contains(sql, "$1 = ANY(main.careers)") {
		t.Fatalf("expected ANY match in SQL:\n%s", sql)
	}
}

func TestBuildIndexQuery_UnknownFilterMatchesNothing(t *testing.T) {
	res := bootcampsResource()
	for _, field := range []string{"location.city", "password"} {
		sb, _, err := BuildIndexQuery(res, query.FindSpec{
			Filter: query.Filter{field: {{Op: query.OpEq, Value: "x"}}},
		})
		if err != nil {
			t.Fatalf("BuildIndexQuery error: %v", err)
		}
		sql, _, _ := sb.ToSql()
		if !strings.Contains(sql, "WHERE FALSE") {
			t.Fatalf("expected match-nothing for %s:\n%s", field, sql)
		}
	}
}

func TestBuildIndexQuery_CastError(t *testing.T) {
	res := bootcampsResource()
	_, _, err := BuildIndexQuery(res, query.FindSpec{
		Filter: query.Filter{"averageCost": {{Op: query.OpGt, Value: "lots"}}},
	})
	if err == nil {
		t.Fatalf("expected cast error")
	}
}

func TestBuildCountQuery_SharesWhere(t *testing.T) {
	res := bootcampsResource()
	sb, err := BuildCountQuery(res, query.Filter{"name": {{Op: query.OpEq, Value: "Devworks"}}})
	if err != nil {
		t.Fatalf("BuildCountQuery error: %v", err)
	}
	sql, args, _ := sb.ToSql()
	if !strings.Contains(sql, "SELECT COUNT(*) FROM bootcamps AS main WHERE (main.name = $1)") {
		t.Fatalf("unexpected count SQL:\n%s", sql)
	}
	if len(args) != 1 || args[0] != "Devworks" {
		t.Fatalf("unexpected args: %#v", args)
	}
	if strings.Contains(sql, "LIMIT") || strings.Contains(sql, "ORDER BY") {
		t.Fatalf("count must ignore paging:\n%s", sql)
	}
}
