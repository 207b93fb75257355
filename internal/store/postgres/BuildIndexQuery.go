package postgres

import (
	"fmt"

	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"

	"github.com/Masterminds/squirrel"
)

// BuildIndexQuery строит SELECT-запрос для листинга ресурса
func BuildIndexQuery(res *resource.Resource, spec query.FindSpec) (squirrel.SelectBuilder, []*resource.Field, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)

	// 1. FROM
	sb = sb.From(fmt.Sprintf("%s AS main", res.Table))

	// 2. Проекция: id всегда, скрытые поля никогда
	fields := res.Projection(spec.Select)
	sb = sb.Columns(columnList(fields, "main.")...)

	// 3. WHERE фильтры
	where, err := buildWhereClause(res, spec.Filter)
	if err != nil {
		return sb, nil, err
	}
	if where != nil {
		sb = sb.Where(where)
	}

	// 4. ORDER BY; неизвестные поля пропускаем, id как tiebreak
	for _, k := range spec.Sort {
		f, ok := res.Field(k.Field)
		if !ok || f.Hidden {
			continue
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		sb = sb.OrderBy(fmt.Sprintf("main.%s %s", f.Col(), dir))
	}
	sb = sb.OrderBy("main.id ASC")

	// 5. LIMIT / OFFSET
	if spec.Limit > 0 {
		sb = sb.Limit(uint64(spec.Limit))
	}
	if spec.Skip > 0 {
		sb = sb.Offset(uint64(spec.Skip))
	}

	return sb, fields, nil
}

func BuildCountQuery(res *resource.Resource, filter query.Filter) (squirrel.SelectBuilder, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)
	sb = sb.From(fmt.Sprintf("%s AS main", res.Table)).Column("COUNT(*)")

	where, err := buildWhereClause(res, filter)
	if err != nil {
		return sb, err
	}
	if where != nil {
		sb = sb.Where(where)
	}
	return sb, nil
}

func columnList(fields []*resource.Field, prefix string) []string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = prefix + f.Col()
	}
	return cols
}
