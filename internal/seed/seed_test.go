package seed

import (
	"context"
	"testing"
	"time"

	"DevcampAPI/internal/auth"
	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store/memory"

	"github.com/google/go-cmp/cmp"
)

func TestImportAndDelete(t *testing.T) {
	reg, err := resource.InitRegistry("../../resources")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	st := memory.New()
	ctx := context.Background()

	counts, err := Import(ctx, st, reg, "../../seed")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want := map[string]int{"users": 5, "bootcamps": 2, "courses": 4, "reviews": 3}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}

	bootcamps := reg.MustGet("bootcamps")
	bc, err := st.Get(ctx, bootcamps, "5d713995-b721-4c1d-8a04-36f7e0d2a001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if bc["averageCost"] != float64(10000) || bc["slug"] != "devworks-bootcamp" {
		t.Fatalf("unexpected bootcamp: %v", bc)
	}
	if created, ok := bc["createdAt"].(time.Time); !ok || created.Year() != 2024 {
		t.Fatalf("createdAt not kept: %v", bc["createdAt"])
	}

	users := reg.MustGet("users")
	admin, err := st.FindOne(ctx, users, "email", "admin@gmail.com")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if admin["role"] != "admin" || !auth.CheckPassword(admin["password"].(string), "123456") {
		t.Fatalf("admin not seeded with a hashed password: %v", admin)
	}

	courses := reg.MustGet("courses")
	n, err := st.Count(ctx, courses, query.Filter{"weeks": {{Op: query.OpGte, Value: "12"}}})
	if err != nil || n != 2 {
		t.Fatalf("typed weeks filter: %d %v", n, err)
	}

	if err := Delete(ctx, st, reg); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, name := range Order {
		n, err := st.Count(ctx, reg.MustGet(name), nil)
		if err != nil || n != 0 {
			t.Fatalf("%s not deleted: %d %v", name, n, err)
		}
	}
}

func TestRecord_RejectsUnknownField(t *testing.T) {
	reg, err := resource.InitRegistry("../../resources")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if _, err := Record(reg.MustGet("courses"), map[string]any{"title": "x", "price": 1}); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}
