// Package mongo stores resources as documents, one collection per resource.
package mongo

import (
	"context"
	"time"

	"DevcampAPI/internal/logger"
	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Find(ctx context.Context, res *resource.Resource, spec query.FindSpec) ([]map[string]any, error) {
	filter, err := BuildFilter(res, spec.Filter)
	if err != nil {
		return nil, err
	}
	fields := res.Projection(spec.Select)
	opts := options.Find().
		SetProjection(BuildProjection(fields)).
		SetSort(BuildSort(res, spec.Sort))
	if spec.Skip > 0 {
		opts.SetSkip(int64(spec.Skip))
	}
	if spec.Limit > 0 {
		opts.SetLimit(int64(spec.Limit))
	}
	logger.Debug("mongo_find", map[string]any{
		"collection": res.Table,
		"filter":     filter,
	})

	cur, err := s.db.Collection(res.Table).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "finding %s", res.Table)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", res.Table)
	}

	items := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		rec, err := fromDocument(doc, fields)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := store.Attach(ctx, s, res, items, spec.Select, spec.Populate); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) Count(ctx context.Context, res *resource.Resource, filter query.Filter) (int64, error) {
	f, err := BuildFilter(res, filter)
	if err != nil {
		return 0, err
	}
	n, err := s.db.Collection(res.Table).CountDocuments(ctx, f)
	return n, errors.Wrapf(err, "counting %s", res.Table)
}

func (s *Store) Get(ctx context.Context, res *resource.Resource, id string) (map[string]any, error) {
	if !store.ValidID(id) {
		return nil, store.ErrNotFound
	}
	return s.findOne(ctx, res, res.Visible(), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) FindOne(ctx context.Context, res *resource.Resource, field string, value any) (map[string]any, error) {
	f, ok := res.Field(field)
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.findOne(ctx, res, allFields(res), bson.D{{Key: docKey(f), Value: value}})
}

func (s *Store) Insert(ctx context.Context, res *resource.Resource, rec map[string]any) (map[string]any, error) {
	rec = store.NewRecord(rec)
	doc := bson.D{}
	for _, f := range allFields(res) {
		if v, ok := rec[f.Name]; ok {
			doc = append(doc, bson.E{Key: docKey(f), Value: v})
		}
	}
	if _, err := s.db.Collection(res.Table).InsertOne(ctx, doc); err != nil {
		return nil, mapError(res, err)
	}
	return s.Get(ctx, res, rec[resource.IDField].(string))
}

func (s *Store) Update(ctx context.Context, res *resource.Resource, id string, patch map[string]any) (map[string]any, error) {
	if !store.ValidID(id) {
		return nil, store.ErrNotFound
	}
	set := bson.D{}
	for _, f := range res.Fields {
		if v, ok := patch[f.Name]; ok {
			set = append(set, bson.E{Key: docKey(f), Value: v})
		}
	}
	if len(set) == 0 {
		return s.Get(ctx, res, id)
	}

	fields := res.Visible()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(BuildProjection(fields))
	var doc bson.M
	err := s.db.Collection(res.Table).
		FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}}, opts).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, mapError(res, err)
	}
	return fromDocument(doc, fields)
}

func (s *Store) Delete(ctx context.Context, res *resource.Resource, id string) error {
	if !store.ValidID(id) {
		return store.ErrNotFound
	}
	out, err := s.db.Collection(res.Table).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrapf(err, "deleting %s", res.Table)
	}
	if out.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context, res *resource.Resource) error {
	_, err := s.db.Collection(res.Table).DeleteMany(ctx, bson.D{})
	return errors.Wrapf(err, "deleting all %s", res.Table)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates unique indexes for fields marked unique.
func (s *Store) EnsureIndexes(ctx context.Context, resources []*resource.Resource) error {
	for _, res := range resources {
		var models []mongo.IndexModel
		for _, f := range res.Fields {
			if f.Unique {
				models = append(models, mongo.IndexModel{
					Keys:    bson.D{{Key: docKey(f), Value: 1}},
					Options: options.Index().SetUnique(true),
				})
			}
		}
		models = append(models, mongo.IndexModel{Keys: bson.D{{Key: resource.CreatedAtField, Value: -1}}})
		if _, err := s.db.Collection(res.Table).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating indexes on %s", res.Table)
		}
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, res *resource.Resource, fields []*resource.Field, filter bson.D) (map[string]any, error) {
	var doc bson.M
	err := s.db.Collection(res.Table).
		FindOne(ctx, filter, options.FindOne().SetProjection(BuildProjection(fields))).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding one %s", res.Table)
	}
	return fromDocument(doc, fields)
}

// fromDocument maps a decoded document onto API field names and Go types.
func fromDocument(doc bson.M, fields []*resource.Field) (map[string]any, error) {
	rec := make(map[string]any, len(fields))
	for _, f := range fields {
		raw, ok := doc[docKey(f)]
		if !ok {
			continue
		}
		v, err := f.Cast(normalize(raw))
		if err != nil {
			return nil, err
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.A:
		return []any(x)
	case time.Time:
		return x.UTC()
	}
	return v
}

func allFields(res *resource.Resource) []*resource.Field {
	id, _ := res.Field(resource.IDField)
	created, _ := res.Field(resource.CreatedAtField)
	out := []*resource.Field{id}
	out = append(out, res.Fields...)
	return append(out, created)
}

func mapError(res *resource.Resource, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(store.ErrDuplicate, "%s", res.Name)
	}
	return errors.Wrapf(err, "writing %s", res.Table)
}
