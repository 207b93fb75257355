package postgres

import (
	"fmt"

	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"

	"github.com/Masterminds/squirrel"
)

// matchNothing is used when a filter names a field the resource does not
// have: like a document store, the query simply has no matches.
var matchNothing = squirrel.Expr("FALSE")

func buildWhereClause(res *resource.Resource, filter query.Filter) (squirrel.Sqlizer, error) {
	var exprs []squirrel.Sqlizer

	for _, name := range filter.Fields() {
		f, ok := res.Field(name)
		if !ok || f.Hidden {
			return matchNothing, nil
		}
		sqlField := "main." + f.Col()

		for _, c := range filter[name] {
			cond, err := buildCond(f, sqlField, c)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, cond)
		}
	}

	if len(exprs) == 0 {
		return nil, nil
	}
	return squirrel.And(exprs), nil
}

func buildCond(f *resource.Field, sqlField string, c query.Condition) (squirrel.Sqlizer, error) {
	if c.Op == query.OpIn {
		vals := make([]any, 0, len(c.Values))
		for _, raw := range c.Values {
			v, err := f.CastElem(raw)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		if len(vals) == 0 {
			return matchNothing, nil
		}
		if f.Type == "array" {
			// пересечение массивов
			return squirrel.Expr(sqlField+" && ?::text[]", c.Values), nil
		}
		return squirrel.Eq{sqlField: vals}, nil
	}

	val, err := f.CastElem(c.Value)
	if err != nil {
		return nil, err
	}

	if f.Type == "array" {
		// любой элемент массива удовлетворяет условию
		switch c.Op {
		case query.OpEq:
			return squirrel.Expr("? = ANY("+sqlField+")", val), nil
		case query.OpGt:
			return squirrel.Expr("? < ANY("+sqlField+")", val), nil
		case query.OpGte:
			return squirrel.Expr("? <= ANY("+sqlField+")", val), nil
		case query.OpLt:
			return squirrel.Expr("? > ANY("+sqlField+")", val), nil
		case query.OpLte:
			return squirrel.Expr("? >= ANY("+sqlField+")", val), nil
		}
		return nil, fmt.Errorf("unknown filter operator: %s", c.Op)
	}

	switch c.Op {
	case query.OpEq:
		return squirrel.Eq{sqlField: val}, nil
	case query.OpGt:
		return squirrel.Gt{sqlField: val}, nil
	case query.OpGte:
		return squirrel.GtOrEq{sqlField: val}, nil
	case query.OpLt:
		return squirrel.Lt{sqlField: val}, nil
	case query.OpLte:
		return squirrel.LtOrEq{sqlField: val}, nil
	}
	return nil, fmt.Errorf("unknown filter operator: %s", c.Op)
}
