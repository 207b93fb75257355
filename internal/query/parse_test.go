package query

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFilter_Operators(t *testing.T) {
	params := url.Values{
		"averageCost[gte]": {"10000"},
		"averageCost[lt]":  {"20000"},
		"careers[in]":      {"Business,UI/UX"},
		"housing":          {"true"},
	}

	got := ParseFilter(params)
	want := Filter{
		"averageCost": {{Op: OpGte, Value: "10000"}, {Op: OpLt, Value: "20000"}},
		"careers":     {{Op: OpIn, Values: []string{"Business", "UI/UX"}}},
		"housing":     {{Op: OpEq, Value: "true"}},
	}

	// порядок условий одного поля зависит от обхода map
	for _, conds := range got["averageCost"] {
		if conds.Op != OpGte && conds.Op != OpLt {
			t.Fatalf("unexpected op: %+v", conds)
		}
	}
	if len(got["averageCost"]) != 2 {
		t.Fatalf("expected 2 averageCost conditions, got %+v", got["averageCost"])
	}
	delete(got, "averageCost")
	delete(want, "averageCost")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFilter_ReservedKeysNeverFilter(t *testing.T) {
	params := url.Values{
		"select":   {"name"},
		"sort":     {"-name"},
		"page":     {"2"},
		"limit":    {"5"},
		"page[gt]": {"1"},
		"name":     {"x"},
	}

	got := ParseFilter(params)
	if diff := cmp.Diff([]string{"name"}, got.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFilter_OperatorTokenIsExact(t *testing.T) {
	params := url.Values{
		"budget":      {"gte"},
		"title":       {"budget"},
		"price[gtx]":  {"5"},
		"price2[gte]": {"7"},
	}

	got := ParseFilter(params)
	want := Filter{
		"budget":    {{Op: OpEq, Value: "gte"}},
		"title":     {{Op: OpEq, Value: "budget"}},
		"price.gtx": {{Op: OpEq, Value: "5"}},
		"price2":    {{Op: OpGte, Value: "7"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFilter_NestedAndRepeated(t *testing.T) {
	params := url.Values{
		"location[city]":     {"Boston"},
		"location[zip][lte]": {"02200"},
		"careers":            {"Business", "Other"},
		"minimumSkill[in]":   {"beginner", "advanced,intermediate"},
	}

	got := ParseFilter(params)
	want := Filter{
		"location.city": {{Op: OpEq, Value: "Boston"}},
		"location.zip":  {{Op: OpLte, Value: "02200"}},
		"careers":       {{Op: OpIn, Values: []string{"Business", "Other"}}},
		"minimumSkill":  {{Op: OpIn, Values: []string{"beginner", "advanced", "intermediate"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDirectives_Defaults(t *testing.T) {
	got := ParseDirectives(url.Values{})
	want := Directives{
		Sort:  []SortKey{{Field: "createdAt", Desc: true}},
		Page:  1,
		Limit: 25,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("directives mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDirectives_SelectAndSort(t *testing.T) {
	got := ParseDirectives(url.Values{
		"select": {"name,description housing"},
		"sort":   {"-averageCost,name"},
		"page":   {"3"},
		"limit":  {"10"},
	})
	want := Directives{
		Select: []string{"name", "description", "housing"},
		Sort:   []SortKey{{Field: "averageCost", Desc: true}, {Field: "name"}},
		Page:   3,
		Limit:  10,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("directives mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDirectives_MalformedPaging(t *testing.T) {
	cases := []struct {
		page, limit         string
		wantPage, wantLimit int
	}{
		{"abc", "xyz", 1, 25},
		{"0", "-5", 1, 25},
		{"", "", 1, 25},
		{"2abc", " 7", 2, 7},
		{"+4", "3.9", 4, 3},
		{"99999999999999999999", "10", 1, 10},
	}
	for _, c := range cases {
		d := ParseDirectives(url.Values{"page": {c.page}, "limit": {c.limit}})
		if d.Page != c.wantPage || d.Limit != c.wantLimit {
			t.Fatalf("page=%q limit=%q: got %d/%d, want %d/%d",
				c.page, c.limit, d.Page, d.Limit, c.wantPage, c.wantLimit)
		}
	}
}

func TestIsReserved(t *testing.T) {
	for _, k := range []string{"select", "sort", "page", "limit", "limit[gt]"} {
		if !IsReserved(k) {
			t.Fatalf("%s should be reserved", k)
		}
	}
	if IsReserved("pages") {
		t.Fatalf("pages should not be reserved")
	}
}
