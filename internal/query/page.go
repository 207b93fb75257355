package query

import (
	"context"
	"fmt"
	"math"
	"net/url"
)

// Options scope a listing. When ParentID is set the listing is nested under
// a known parent: ParentField becomes an equality filter and population is
// skipped, since the parent is already known to the caller.
type Options struct {
	ParentField string
	ParentID    string
	Populate    []Populate
}

// BuildPage runs a filtered, sorted, projected and paginated read against
// coll. It never mutates the collection.
func BuildPage(ctx context.Context, params url.Values, coll Collection, opts Options) (PageResult, error) {
	filter := ParseFilter(params)
	dir := ParseDirectives(params)

	spec := FindSpec{
		Filter: filter,
		Select: dir.Select,
		Sort:   dir.Sort,
		Skip:   skipFor(dir.Page, dir.Limit),
		Limit:  dir.Limit,
	}
	if opts.ParentID != "" && opts.ParentField != "" {
		filter[opts.ParentField] = []Condition{{Op: OpEq, Value: opts.ParentID}}
	} else {
		spec.Populate = opts.Populate
	}

	total, err := coll.Count(ctx, filter)
	if err != nil {
		return PageResult{}, fmt.Errorf("count: %w", err)
	}

	items, err := coll.Find(ctx, spec)
	if err != nil {
		return PageResult{}, fmt.Errorf("find: %w", err)
	}
	if items == nil {
		items = []map[string]any{}
	}

	return PageResult{
		Items:      items,
		TotalCount: total,
		Pagination: Paginate(dir.Page, dir.Limit, total),
	}, nil
}

// Paginate builds the next/prev descriptors for page of size limit.
// page*limit is never computed directly: page*limit < total is checked as
// page <= (total-1)/limit.
func Paginate(page, limit int, total int64) Pagination {
	var p Pagination
	if limit < 1 {
		return p
	}
	if total > 0 && page < math.MaxInt && int64(page) <= (total-1)/int64(limit) {
		p.Next = &PageLink{Page: page + 1, Limit: limit}
	}
	if page > 1 {
		p.Prev = &PageLink{Page: page - 1, Limit: limit}
	}
	return p
}

// skipFor returns (page-1)*limit, saturated at math.MaxInt.
func skipFor(page, limit int) int {
	if page <= 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}
