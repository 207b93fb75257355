package postgres

import (
	"context"
	"errors"
	"fmt"

	"DevcampAPI/internal/logger"
	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Find(ctx context.Context, res *resource.Resource, spec query.FindSpec) ([]map[string]any, error) {
	sb, fields, err := BuildIndexQuery(res, spec)
	if err != nil {
		return nil, err
	}
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql: %w", err)
	}
	logger.Debug("sql", map[string]any{
		"resource": res.Name,
		"sql":      sqlStr,
		"args":     args,
	})

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", res.Table, err)
	}
	items, err := scanRecords(rows, fields)
	if err != nil {
		return nil, err
	}
	if err := store.Attach(ctx, s, res, items, spec.Select, spec.Populate); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) Count(ctx context.Context, res *resource.Resource, filter query.Filter) (int64, error) {
	sb, err := BuildCountQuery(res, filter)
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sql: %w", err)
	}
	var n int64
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", res.Table, err)
	}
	return n, nil
}

func (s *Store) Get(ctx context.Context, res *resource.Resource, id string) (map[string]any, error) {
	if !store.ValidID(id) {
		return nil, store.ErrNotFound
	}
	return s.selectOne(ctx, res, res.Visible(), squirrel.Eq{"id": id})
}

func (s *Store) FindOne(ctx context.Context, res *resource.Resource, field string, value any) (map[string]any, error) {
	f, ok := res.Field(field)
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.selectOne(ctx, res, allFields(res), squirrel.Eq{f.Col(): value})
}

func (s *Store) Insert(ctx context.Context, res *resource.Resource, rec map[string]any) (map[string]any, error) {
	rec = store.NewRecord(rec)
	fields := allFields(res)

	cols := make([]string, 0, len(fields))
	vals := make([]any, 0, len(fields))
	for _, f := range fields {
		v, ok := rec[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, f.Col())
		vals = append(vals, v)
	}

	visible := res.Visible()
	ib := psql.Insert(res.Table).Columns(cols...).Values(vals...).
		Suffix("RETURNING " + joinCols(visible))
	sqlStr, args, err := ib.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(res, err)
	}
	items, err := scanRecords(rows, visible)
	if err != nil {
		return nil, mapError(res, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", res.Table)
	}
	return items[0], nil
}

func (s *Store) Update(ctx context.Context, res *resource.Resource, id string, patch map[string]any) (map[string]any, error) {
	if !store.ValidID(id) {
		return nil, store.ErrNotFound
	}
	set := map[string]any{}
	for _, f := range res.Fields {
		if v, ok := patch[f.Name]; ok {
			set[f.Col()] = v
		}
	}
	if len(set) == 0 {
		return s.Get(ctx, res, id)
	}

	visible := res.Visible()
	ub := psql.Update(res.Table).SetMap(set).Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinCols(visible))
	sqlStr, args, err := ub.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(res, err)
	}
	items, err := scanRecords(rows, visible)
	if err != nil {
		return nil, mapError(res, err)
	}
	if len(items) == 0 {
		return nil, store.ErrNotFound
	}
	return items[0], nil
}

func (s *Store) Delete(ctx context.Context, res *resource.Resource, id string) error {
	if !store.ValidID(id) {
		return store.ErrNotFound
	}
	sqlStr, args, err := psql.Delete(res.Table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build sql: %w", err)
	}
	tag, err := s.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", res.Table, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context, res *resource.Resource) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM "+pgx.Identifier{res.Table}.Sanitize()); err != nil {
		return fmt.Errorf("delete all %s: %w", res.Table, err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func (s *Store) selectOne(ctx context.Context, res *resource.Resource, fields []*resource.Field, where squirrel.Sqlizer) (map[string]any, error) {
	sqlStr, args, err := psql.Select(columnList(fields, "main.")...).
		From(res.Table + " AS main").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", res.Table, err)
	}
	items, err := scanRecords(rows, fields)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, store.ErrNotFound
	}
	return items[0], nil
}

// scanRecords читает строки в записи с ключами по именам полей API,
// приводя значения pgx к типам полей.
func scanRecords(rows pgx.Rows, fields []*resource.Field) ([]map[string]any, error) {
	defer rows.Close()
	out := make([]map[string]any, 0, 32)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		n := min(len(vals), len(fields))
		rec := make(map[string]any, n)
		for i := 0; i < n; i++ {
			v, err := fields[i].Cast(vals[i])
			if err != nil {
				return nil, err
			}
			rec[fields[i].Name] = v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func allFields(res *resource.Resource) []*resource.Field {
	id, _ := res.Field(resource.IDField)
	created, _ := res.Field(resource.CreatedAtField)
	out := []*resource.Field{id}
	out = append(out, res.Fields...)
	return append(out, created)
}

func joinCols(fields []*resource.Field) string {
	s := ""
	for i, f := range fields {
		if i > 0 {
			s += ", "
		}
		s += f.Col()
	}
	return s
}

func mapError(res *resource.Resource, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %s: %w", res.Name, pgErr.ConstraintName, store.ErrDuplicate)
	}
	return fmt.Errorf("write %s: %w", res.Table, err)
}
