// Package memory keeps resources in process. It backs STORE_DRIVER=memory
// and the handler and query tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	data map[string][]map[string]any // resource name -> records in insertion order
}

func New() *Store {
	return &Store{data: map[string][]map[string]any{}}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Find(ctx context.Context, res *resource.Resource, spec query.FindSpec) ([]map[string]any, error) {
	s.mu.RLock()
	matched := make([]map[string]any, 0)
	for _, rec := range s.data[res.Name] {
		ok, err := matches(res, rec, spec.Filter)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, rec)
		}
	}
	s.mu.RUnlock()

	keys := sortKeys(res, spec.Sort)
	sort.SliceStable(matched, func(i, j int) bool {
		for _, k := range keys {
			c := compare(matched[i][k.Field], matched[j][k.Field])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	if spec.Skip > 0 {
		if spec.Skip >= len(matched) {
			matched = matched[:0]
		} else {
			matched = matched[spec.Skip:]
		}
	}
	if spec.Limit > 0 && len(matched) > spec.Limit {
		matched = matched[:spec.Limit]
	}

	fields := res.Projection(spec.Select)
	out := make([]map[string]any, 0, len(matched))
	for _, rec := range matched {
		out = append(out, project(rec, fields))
	}
	if err := store.Attach(ctx, s, res, out, spec.Select, spec.Populate); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Count(_ context.Context, res *resource.Resource, filter query.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, rec := range s.data[res.Name] {
		ok, err := matches(res, rec, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *Store) Get(_ context.Context, res *resource.Resource, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, _ := s.lookup(res, id)
	if rec == nil {
		return nil, store.ErrNotFound
	}
	return project(rec, res.Visible()), nil
}

func (s *Store) FindOne(_ context.Context, res *resource.Resource, field string, value any) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.data[res.Name] {
		if compare(rec[field], value) == 0 && rec[field] != nil {
			return clone(rec), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) Insert(_ context.Context, res *resource.Resource, rec map[string]any) (map[string]any, error) {
	rec = store.NewRecord(rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(res, rec, ""); err != nil {
		return nil, err
	}
	s.data[res.Name] = append(s.data[res.Name], clone(rec))
	return project(rec, res.Visible()), nil
}

func (s *Store) Update(_ context.Context, res *resource.Resource, id string, patch map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, idx := s.lookup(res, id)
	if rec == nil {
		return nil, store.ErrNotFound
	}
	next := clone(rec)
	for k, v := range patch {
		if k == resource.IDField || k == resource.CreatedAtField {
			continue
		}
		next[k] = v
	}
	if err := s.checkUnique(res, next, id); err != nil {
		return nil, err
	}
	s.data[res.Name][idx] = next
	return project(next, res.Visible()), nil
}

func (s *Store) Delete(_ context.Context, res *resource.Resource, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, idx := s.lookup(res, id)
	if rec == nil {
		return store.ErrNotFound
	}
	s.data[res.Name] = slices.Delete(s.data[res.Name], idx, idx+1)
	return nil
}

func (s *Store) DeleteAll(_ context.Context, res *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, res.Name)
	return nil
}

func (s *Store) Close(context.Context) error {
	return nil
}

func (s *Store) lookup(res *resource.Resource, id string) (map[string]any, int) {
	for i, rec := range s.data[res.Name] {
		if rec[resource.IDField] == id {
			return rec, i
		}
	}
	return nil, -1
}

func (s *Store) checkUnique(res *resource.Resource, rec map[string]any, selfID string) error {
	for _, f := range res.Fields {
		if !f.Unique || rec[f.Name] == nil {
			continue
		}
		for _, other := range s.data[res.Name] {
			if other[resource.IDField] == selfID {
				continue
			}
			if compare(other[f.Name], rec[f.Name]) == 0 {
				return fmt.Errorf("%s.%s: %w", res.Name, f.Name, store.ErrDuplicate)
			}
		}
	}
	return nil
}

// sortKeys drops unknown fields. Ties keep insertion order (stable sort).
func sortKeys(res *resource.Resource, keys []query.SortKey) []query.SortKey {
	out := make([]query.SortKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := res.Field(k.Field); ok {
			out = append(out, k)
		}
	}
	return out
}

func project(rec map[string]any, fields []*resource.Field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := rec[f.Name]; ok {
			out[f.Name] = cloneValue(v)
		}
	}
	return out
}

func clone(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if list, ok := v.([]string); ok {
		return append([]string(nil), list...)
	}
	return v
}
