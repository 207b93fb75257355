package itests

import (
	"net/http"
	"testing"
)

// Фильтры из query string против пересчёта тем же условием в SQL
func Test_List_Bootcamps_FilterMatchesSQL(t *testing.T) {
	requireServer(t)

	cases := []struct {
		path string
		sql  string
	}{
		{"/api/v1/bootcamps?careers[in]=Business", `SELECT count(*) FROM bootcamps WHERE 'Business' = ANY(careers)`},
		{"/api/v1/bootcamps?careers=Mobile%20Development", `SELECT count(*) FROM bootcamps WHERE 'Mobile Development' = ANY(careers)`},
		{"/api/v1/bootcamps?averageCost[lte]=10000", `SELECT count(*) FROM bootcamps WHERE average_cost <= 10000`},
		{"/api/v1/bootcamps?housing=true", `SELECT count(*) FROM bootcamps WHERE housing`},
		{"/api/v1/courses?tuition[gt]=9000&minimumSkill=intermediate", `SELECT count(*) FROM courses WHERE tuition > 9000 AND minimum_skill = 'intermediate'`},
		{"/api/v1/courses?weeks[in]=8,10", `SELECT count(*) FROM courses WHERE weeks IN (8, 10)`},
	}
	for _, c := range cases {
		code, out := call(t, http.MethodGet, c.path, "", nil)
		if code != http.StatusOK {
			t.Fatalf("%s: %d %v", c.path, code, out)
		}
		want := sqlCount(t, c.sql)
		if got := int(out["count"].(float64)); got != want {
			t.Fatalf("%s: count %d, want %d", c.path, got, want)
		}
	}
}

func Test_List_Courses_Pagination(t *testing.T) {
	requireServer(t)

	total := sqlCount(t, `SELECT count(*) FROM courses`)
	if total < 3 {
		t.Skip("not enough courses to test pagination")
	}

	code, out := call(t, http.MethodGet, "/api/v1/courses?limit=2&page=1&sort=tuition", "", nil)
	if code != http.StatusOK || out["count"] != float64(2) {
		t.Fatalf("first page: %d %v", code, out)
	}
	pag := out["pagination"].(map[string]any)
	if _, ok := pag["prev"]; ok {
		t.Fatalf("first page must not have prev: %v", pag)
	}
	if next, ok := pag["next"].(map[string]any); !ok || next["page"] != float64(2) {
		t.Fatalf("first page must link next: %v", pag)
	}

	data := out["data"].([]any)
	a := data[0].(map[string]any)["tuition"].(float64)
	b := data[1].(map[string]any)["tuition"].(float64)
	if a > b {
		t.Fatalf("sort=tuition not ascending: %v, %v", a, b)
	}
	if _, ok := data[0].(map[string]any)["bootcamp"].(map[string]any); !ok {
		t.Fatalf("courses must populate bootcamp: %v", data[0])
	}
}

func Test_List_Bootcamps_SelectAndPopulate(t *testing.T) {
	requireServer(t)

	code, out := call(t, http.MethodGet, "/api/v1/bootcamps?select=name,averageCost&sort=-averageCost", "", nil)
	if code != http.StatusOK {
		t.Fatalf("list: %d %v", code, out)
	}
	for _, it := range out["data"].([]any) {
		item := it.(map[string]any)
		if _, ok := item["id"]; !ok {
			t.Fatalf("id must always be selected: %v", item)
		}
		if _, ok := item["description"]; ok {
			t.Fatalf("unselected field returned: %v", item)
		}
		if _, ok := item["courses"].([]any); !ok {
			t.Fatalf("courses must be populated: %v", item)
		}
	}
}
