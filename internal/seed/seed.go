// Package seed imports and deletes the JSON fixtures under seed/.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"DevcampAPI/internal/auth"
	"DevcampAPI/internal/logger"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"
)

// Order is the import order; parents come before the records that reference them.
var Order = []string{"users", "bootcamps", "courses", "reviews"}

// Import inserts <dir>/<resource>.json for every resource in Order.
// Ids and createdAt from the files are kept. Passwords are hashed.
func Import(ctx context.Context, st store.Store, reg *resource.Registry, dir string) (map[string]int, error) {
	counts := make(map[string]int, len(Order))
	for _, name := range Order {
		res, ok := reg.Get(name)
		if !ok {
			continue
		}
		raw, err := readFile(filepath.Join(dir, name+".json"))
		if err != nil {
			return counts, err
		}
		for i, item := range raw {
			rec, err := Record(res, item)
			if err != nil {
				return counts, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			if _, err := st.Insert(ctx, res, rec); err != nil {
				return counts, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			counts[name]++
		}
		logger.Info("seed_imported", map[string]any{"resource": name, "count": counts[name]})
	}
	return counts, nil
}

// Delete removes every record of every resource in Order, children first.
func Delete(ctx context.Context, st store.Store, reg *resource.Registry) error {
	names := slices.Clone(Order)
	slices.Reverse(names)
	for _, name := range names {
		res, ok := reg.Get(name)
		if !ok {
			continue
		}
		if err := st.DeleteAll(ctx, res); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
		logger.Info("seed_deleted", map[string]any{"resource": name})
	}
	return nil
}

// Record casts a fixture object to the resource's field types. Unlike a
// client payload, read-only fields and roles outside the enum are kept.
func Record(res *resource.Resource, item map[string]any) (map[string]any, error) {
	rec := make(map[string]any, len(item))
	for key, v := range item {
		f, ok := res.Field(key)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", key)
		}
		val, err := f.Cast(v)
		if err != nil {
			return nil, err
		}
		rec[f.Name] = val
	}
	for _, f := range res.Fields {
		if _, ok := rec[f.Name]; !ok && f.Default != nil {
			val, err := f.Cast(f.Default)
			if err != nil {
				return nil, err
			}
			rec[f.Name] = val
		}
	}
	if pw, ok := rec["password"].(string); ok {
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return nil, err
		}
		rec["password"] = hash
	}
	return rec, nil
}

func readFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return out, nil
}
