package query

import (
	"context"
	"sort"
)

// Op is a comparison operator understood by every backing collection.
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// comparisonOps are the tokens a caller may write as field[op]=value.
var comparisonOps = map[string]Op{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
	"in":  OpIn,
}

// Condition constrains one field. Value is used by every operator except
// OpIn, which reads Values.
type Condition struct {
	Op     Op       `json:"op"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Filter maps a field name to the conditions that must all hold for it.
type Filter map[string][]Condition

// Fields returns the filtered field names in a stable order.
func (f Filter) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Eq adds an equality condition on field.
func (f Filter) Eq(field, value string) {
	f[field] = append(f[field], Condition{Op: OpEq, Value: value})
}

// Clone returns a copy that can be extended without touching f.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, conds := range f {
		out[k] = append([]Condition(nil), conds...)
	}
	return out
}

type SortKey struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// Directives are the reserved-key controls of a listing request.
type Directives struct {
	Select []string
	Sort   []SortKey
	Page   int
	Limit  int
}

// Populate names a relation to expand inline on every returned record.
// Select restricts the fields of the expanded record; the relation itself
// (kind, keys, target) is resolved by the collection.
type Populate struct {
	Field  string
	Select []string
}

// FindSpec is a fully resolved read against a collection.
type FindSpec struct {
	Filter   Filter
	Select   []string
	Sort     []SortKey
	Skip     int
	Limit    int
	Populate []Populate
}

// Collection is the queryable store a page is built against.
type Collection interface {
	Find(ctx context.Context, spec FindSpec) ([]map[string]any, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

type PageLink struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Pagination struct {
	Next *PageLink `json:"next,omitempty"`
	Prev *PageLink `json:"prev,omitempty"`
}

// PageResult is one page of a filtered listing. TotalCount covers the whole
// filtered set and only drives the pagination links.
type PageResult struct {
	Items      []map[string]any `json:"items"`
	TotalCount int64            `json:"totalCount"`
	Pagination Pagination       `json:"pagination"`
}

// Count is the number of items on this page, which is what clients see as "count".
func (p PageResult) Count() int {
	return len(p.Items)
}
