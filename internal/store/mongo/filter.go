package mongo

import (
	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

var operators = map[query.Op]string{
	query.OpEq:  "$eq",
	query.OpGt:  "$gt",
	query.OpGte: "$gte",
	query.OpLt:  "$lt",
	query.OpLte: "$lte",
	query.OpIn:  "$in",
}

// matchNothing can never be satisfied since every document has an _id.
var matchNothing = bson.D{{Key: "_id", Value: bson.D{{Key: "$exists", Value: false}}}}

// docKey is the document key of a field; the id lives in _id.
func docKey(f *resource.Field) string {
	if f.Name == resource.IDField {
		return "_id"
	}
	return f.Name
}

// BuildFilter translates a query filter into native comparison operators.
// A lone equality stays a plain {field: value} match; array fields match
// element-wise, which is what the server does natively.
func BuildFilter(res *resource.Resource, filter query.Filter) (bson.D, error) {
	out := bson.D{}
	for _, name := range filter.Fields() {
		f, ok := res.Field(name)
		if !ok || f.Hidden {
			return matchNothing, nil
		}
		conds := filter[name]

		if len(conds) == 1 && conds[0].Op == query.OpEq {
			v, err := f.CastElem(conds[0].Value)
			if err != nil {
				return nil, err
			}
			out = append(out, bson.E{Key: docKey(f), Value: v})
			continue
		}

		ops := bson.D{}
		for _, c := range conds {
			op, ok := operators[c.Op]
			if !ok {
				return nil, errors.Errorf("unknown filter operator: %s", c.Op)
			}
			if c.Op == query.OpIn {
				vals := bson.A{}
				for _, raw := range c.Values {
					v, err := f.CastElem(raw)
					if err != nil {
						return nil, err
					}
					vals = append(vals, v)
				}
				ops = append(ops, bson.E{Key: op, Value: vals})
				continue
			}
			v, err := f.CastElem(c.Value)
			if err != nil {
				return nil, err
			}
			ops = append(ops, bson.E{Key: op, Value: v})
		}
		out = append(out, bson.E{Key: docKey(f), Value: ops})
	}
	return out, nil
}

// BuildProjection includes exactly the projected fields.
func BuildProjection(fields []*resource.Field) bson.D {
	out := make(bson.D, 0, len(fields))
	for _, f := range fields {
		out = append(out, bson.E{Key: docKey(f), Value: 1})
	}
	return out
}

// BuildSort drops unknown fields and breaks ties by _id.
func BuildSort(res *resource.Resource, keys []query.SortKey) bson.D {
	out := bson.D{}
	seen := map[string]bool{}
	for _, k := range keys {
		f, ok := res.Field(k.Field)
		if !ok || f.Hidden || seen[docKey(f)] {
			continue
		}
		seen[docKey(f)] = true
		dir := 1
		if k.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: docKey(f), Value: dir})
	}
	if !seen["_id"] {
		out = append(out, bson.E{Key: "_id", Value: 1})
	}
	return out
}
