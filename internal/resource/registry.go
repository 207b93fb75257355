package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"DevcampAPI/internal/logger"

	"gopkg.in/yaml.v3"
)

// Registry holds every resource loaded from the resources directory.
type Registry struct {
	items map[string]*Resource
}

func NewRegistry(resources ...*Resource) (*Registry, error) {
	reg := &Registry{items: map[string]*Resource{}}
	for _, r := range resources {
		reg.items[r.Name] = r
	}
	if err := reg.Link(); err != nil {
		return nil, err
	}
	return reg, nil
}

// InitRegistry loads, links and validates resources from dir.
func InitRegistry(dir string) (*Registry, error) {
	reg := &Registry{items: map[string]*Resource{}}
	if err := reg.LoadFromDir(dir); err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}
	if err := reg.Link(); err != nil {
		return nil, fmt.Errorf("link error: %w", err)
	}
	return reg, nil
}

func (reg *Registry) LoadFromDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no resources found in %s", dir)
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		// 1. Разбираем в yaml.Node для структурной валидации
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("YAML parse error in %s: %w", path, err)
		}
		if len(root.Content) == 0 {
			return fmt.Errorf("empty YAML in %s", path)
		}
		if err := validateYAMLNode(root.Content[0], "resource"); err != nil {
			return fmt.Errorf("validation error in %s: %w", path, err)
		}

		// 2. Теперь уже Unmarshal в ресурс
		var res Resource
		if err := root.Decode(&res); err != nil {
			return fmt.Errorf("unmarshal error in %s: %w", path, err)
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		res.Name = name
		if res.Table == "" {
			res.Table = name
		}
		reg.items[name] = &res
		logger.Info("resource_loaded", map[string]any{
			"resource":  name,
			"fields":    len(res.Fields),
			"relations": len(res.Relations),
		})
	}
	return nil
}

// Link resolves relation targets and checks that every reference points to
// a declared field.
func (reg *Registry) Link() error {
	for _, name := range reg.Names() {
		res := reg.items[name]
		res.index()
		seen := map[string]bool{}
		for _, f := range res.Fields {
			if f.Name == "" {
				return fmt.Errorf("%s: field without name", name)
			}
			if f.Name == IDField || f.Name == CreatedAtField {
				return fmt.Errorf("%s: field %s is implicit", name, f.Name)
			}
			if seen[f.Name] {
				return fmt.Errorf("%s: duplicate field %s", name, f.Name)
			}
			seen[f.Name] = true
		}
		if res.Owner != "" {
			if _, ok := res.Field(res.Owner); !ok {
				return fmt.Errorf("%s: owner field %s is not declared", name, res.Owner)
			}
		}
		for relName, rel := range res.Relations {
			target, ok := reg.items[rel.Resource]
			if !ok {
				return fmt.Errorf("%s.%s: unknown resource %s", name, relName, rel.Resource)
			}
			rel.target = target
			switch rel.Type {
			case BelongsTo:
				if _, ok := res.Field(rel.FK); !ok {
					return fmt.Errorf("%s.%s: fk %s is not a field of %s", name, relName, rel.FK, name)
				}
			case HasMany:
				target.index()
				if _, ok := target.Field(rel.FK); !ok {
					return fmt.Errorf("%s.%s: fk %s is not a field of %s", name, relName, rel.FK, target.Name)
				}
			default:
				return fmt.Errorf("%s.%s: unknown relation type %q", name, relName, rel.Type)
			}
		}
		for _, p := range res.Populate {
			if _, ok := res.Relations[p]; !ok {
				return fmt.Errorf("%s: populate %s is not a relation", name, p)
			}
		}
		if res.Parent != nil {
			if _, ok := res.Field(res.Parent.Field); !ok {
				return fmt.Errorf("%s: parent field %s is not declared", name, res.Parent.Field)
			}
			if _, ok := reg.items[res.Parent.Resource]; !ok {
				return fmt.Errorf("%s: parent resource %s is not loaded", name, res.Parent.Resource)
			}
		}
	}
	return nil
}

func (reg *Registry) Get(name string) (*Resource, bool) {
	r, ok := reg.items[name]
	return r, ok
}

// MustGet is used while wiring routes, where a missing resource is a setup bug.
func (reg *Registry) MustGet(name string) *Resource {
	r, ok := reg.items[name]
	if !ok {
		panic("resource not registered: " + name)
	}
	return r
}

func (reg *Registry) Names() []string {
	out := make([]string, 0, len(reg.items))
	for k := range reg.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// All returns the resources ordered by name.
func (reg *Registry) All() []*Resource {
	names := reg.Names()
	out := make([]*Resource, 0, len(names))
	for _, n := range names {
		out = append(out, reg.items[n])
	}
	return out
}

// Dependents lists resources that populate res, whose cached pages go stale
// when res changes.
func (reg *Registry) Dependents(res string) []string {
	var out []string
	for _, name := range reg.Names() {
		for _, rel := range reg.items[name].Relations {
			if rel.Resource == res {
				out = append(out, name)
				break
			}
		}
	}
	return out
}
