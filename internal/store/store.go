package store

import (
	"context"
	"errors"
	"time"

	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("resource not found")
	ErrDuplicate = errors.New("duplicate field value entered")
)

// Store is a backing store holding every resource's records.
// Records are keyed by the resource's API field names.
type Store interface {
	Find(ctx context.Context, res *resource.Resource, spec query.FindSpec) ([]map[string]any, error)
	Count(ctx context.Context, res *resource.Resource, filter query.Filter) (int64, error)
	Get(ctx context.Context, res *resource.Resource, id string) (map[string]any, error)
	// FindOne returns the first record whose field equals value, hidden fields included.
	FindOne(ctx context.Context, res *resource.Resource, field string, value any) (map[string]any, error)
	Insert(ctx context.Context, res *resource.Resource, rec map[string]any) (map[string]any, error)
	Update(ctx context.Context, res *resource.Resource, id string, patch map[string]any) (map[string]any, error)
	Delete(ctx context.Context, res *resource.Resource, id string) error
	// DeleteAll removes every record of res, used by the seeder.
	DeleteAll(ctx context.Context, res *resource.Resource) error
	Close(ctx context.Context) error
}

type collection struct {
	st  Store
	res *resource.Resource
}

// Collection binds a resource of st to the query.Collection contract.
func Collection(st Store, res *resource.Resource) query.Collection {
	return collection{st: st, res: res}
}

func (c collection) Find(ctx context.Context, spec query.FindSpec) ([]map[string]any, error) {
	return c.st.Find(ctx, c.res, spec)
}

func (c collection) Count(ctx context.Context, filter query.Filter) (int64, error) {
	return c.st.Count(ctx, c.res, filter)
}

// NewRecord stamps a decoded record with a fresh id and creation time.
// Seeded records may carry their own id and createdAt.
func NewRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec)+2)
	for k, v := range rec {
		out[k] = v
	}
	if id, ok := out[resource.IDField].(string); !ok || id == "" {
		out[resource.IDField] = uuid.NewString()
	}
	if _, ok := out[resource.CreatedAtField].(time.Time); !ok {
		out[resource.CreatedAtField] = time.Now().UTC()
	}
	return out
}

// ValidID reports whether id can address a record; malformed ids are treated
// as not found by every store.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// PopulateSpecs expands relation names into query.Populate entries using the
// relation's default projection.
func PopulateSpecs(res *resource.Resource, names []string) []query.Populate {
	out := make([]query.Populate, 0, len(names))
	for _, n := range names {
		rel, ok := res.Relation(n)
		if !ok {
			continue
		}
		out = append(out, query.Populate{Field: n, Select: rel.Select})
	}
	return out
}
